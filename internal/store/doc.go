// Package store defines the persistence contracts for questions, levels and
// progress records, together with the errors every implementation returns.
// The postgres and sqlite packages under internal/platform implement them.
package store
