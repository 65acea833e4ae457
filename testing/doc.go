// Package testing holds test support for code built on querykit.
//
// The mocks subpackage provides testify mocks of the driver boundary
// (connection, prepared statement, transaction) so a Builder can run without a
// database. The containers subpackage starts real database servers for
// integration tests tagged "integration".
package testing
