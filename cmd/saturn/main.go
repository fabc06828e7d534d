// Command saturn runs queries through a cost-ordered model cascade from
// the command line: draft on the cheapest tier, verify, escalate only when
// the draft fails the quality gate.
package main

func main() {
	Execute()
}
