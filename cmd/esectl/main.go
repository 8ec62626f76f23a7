// Command esectl inspects Extensible Storage Engine database files: their
// tables, columns, records, and long values.
package main

func main() {
	execute()
}
