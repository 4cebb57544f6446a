// Command quotewatch polls a stock watch list from Tencent, Sina or Longport
// and renders it as a table.
package main

func main() {
	Execute()
}
