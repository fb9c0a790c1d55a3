// Package util contains small data structures shared by the transport.
//
// Key Components:
//
//   - MapHeap: a generic min-heap with a key index, used as the
//     insertion-ordered index of in-flight requests.
package util
