package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// NewNeo4jClient establishes a Bolt connection using the official Neo4j driver.
// Queries run inside managed transactions so transient cluster errors are
// retried by the driver.
func NewNeo4jClient(ctx context.Context, opts Options) (Client, error) {
	if opts.URI == "" {
		return nil, ErrMissingURI
	}

	auth := neo4j.NoAuth()
	if opts.Username != "" {
		auth = neo4j.BasicAuth(opts.Username, opts.Password, "")
	}

	driver, err := neo4j.NewDriverWithContext(opts.URI, auth, func(c *neo4j.Config) {
		if opts.MaxConnections > 0 {
			c.MaxConnectionPoolSize = opts.MaxConnections
		}
	})
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("verify graph connectivity: %w", err)
	}

	var txConfig []func(*neo4j.TransactionConfig)
	if opts.QueryTimeout > 0 {
		txConfig = append(txConfig, neo4j.WithTxTimeout(opts.QueryTimeout))
	}

	return &neo4jClient{
		driver:   driver,
		database: opts.Database,
		txConfig: txConfig,
	}, nil
}

type neo4jClient struct {
	driver   neo4j.DriverWithContext
	database string
	txConfig []func(*neo4j.TransactionConfig)
}

func (c *neo4jClient) ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, collect(ctx, cypher, params), c.txConfig...)
	if err != nil {
		return Result{}, err
	}
	return out.(Result), nil
}

func (c *neo4jClient) ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, collect(ctx, cypher, params), c.txConfig...)
	if err != nil {
		return Result{}, err
	}
	return out.(Result), nil
}

func (c *neo4jClient) VerifyConnectivity(ctx context.Context) error {
	return c.driver.VerifyConnectivity(ctx)
}

func (c *neo4jClient) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

// collect runs one statement and drains its records inside the transaction;
// results are not readable after the transaction function returns.
func collect(ctx context.Context, cypher string, params map[string]any) neo4j.ManagedTransactionWork {
	return func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := Result{Records: make([]Record, 0, len(records))}
		for _, rec := range records {
			out.Records = append(out.Records, toRecord(rec))
		}
		return out, nil
	}
}

func toRecord(rec *neo4j.Record) Record {
	record := make(Record, len(rec.Keys))
	for i, key := range rec.Keys {
		record[key] = rec.Values[i]
	}
	return record
}
