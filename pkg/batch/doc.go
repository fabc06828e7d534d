// Package batch runs many cascade queries concurrently under a bounded
// parallelism budget. Items settle independently unless configured to stop
// on the first failure, and the whole batch races a total timeout that
// fails pending items without discarding completed ones.
package batch
