// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when constructing conversations, scripting
// participants and managers, and draining event streams. They are not
// intended for production usage.
package testutil
