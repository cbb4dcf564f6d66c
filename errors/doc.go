// Package errors defines the structured error type used across the
// adapter. Every failure carries the lifecycle stage it occurred in and
// a kind that callers can match with errors.Is, plus optional detail
// text and an underlying cause.
package errors
