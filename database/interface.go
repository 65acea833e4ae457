package database

import (
	"github.com/gaborage/querykit/database/types"
)

// Interface is the driver boundary a Builder executes against.
type Interface = types.Interface

// Statement is a prepared statement.
type Statement = types.Statement

// Tx is a database transaction.
type Tx = types.Tx
