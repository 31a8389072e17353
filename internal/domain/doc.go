// Package domain contains the core entities of the vocabulary drill: questions
// grouped into levels, per-user progress records and the derived level
// summaries. Everything here is independent of storage and transport.
//
// The pure decision logic lives in sub-packages:
//   - answer: canonical answer extraction and answer matching
//   - session: the adaptive working-set selector
//   - rollup: the streaming level statistics fold
package domain
