// Package testutil provides fluent builders for conversation records and
// sessions used across package tests.
package testutil
