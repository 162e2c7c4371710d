// Package mongo wraps the MongoDB driver and holds the repositories for
// users and conversations.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects, pings, and returns a Client scoped to the given database.
func New(ctx context.Context, uri, dbName string) (*Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	return &Client{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

func (c *Client) UsersCollection() *mongo.Collection {
	return c.db.Collection("users")
}

func (c *Client) ConversationsCollection() *mongo.Collection {
	return c.db.Collection("conversations")
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

// CreateIndexes sets up the uniqueness constraints the services rely on:
// one account per email, one conversation per (subject, owner).
func (c *Client) CreateIndexes(ctx context.Context) error {
	usersIndex := mongo.IndexModel{
		Keys:    map[string]int{"email": 1},
		Options: options.Index().SetUnique(true),
	}

	if _, err := c.UsersCollection().Indexes().CreateOne(ctx, usersIndex); err != nil {
		return fmt.Errorf("create users index: %w", err)
	}

	conversationIndexes := []mongo.IndexModel{
		{
			// The upsert key for AppendEntry.
			Keys:    map[string]int{"subject": 1, "owner_email": 1},
			Options: options.Index().SetUnique(true),
		},
		{
			// ListByOwner sorts on last_updated.
			Keys: map[string]int{"owner_email": 1, "last_updated": -1},
		},
		{
			// Entry lookup for export and download counting.
			Keys: map[string]int{"entries.entry_id": 1},
		},
	}

	if _, err := c.ConversationsCollection().Indexes().CreateMany(ctx, conversationIndexes); err != nil {
		return fmt.Errorf("create conversation indexes: %w", err)
	}

	return nil
}
