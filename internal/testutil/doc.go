// Package testutil contains helper builders and testify mocks used across
// tests to reduce boilerplate when constructing sessions and stubbing the
// language model and analysis engine collaborators. They are not intended
// for production usage.
package testutil
