/*
 * Copyright 2026 The Inkwell Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package mongo implements the database interface using MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	gotime "time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/inkwell-team/inkwell/pkg/document/key"
	"github.com/inkwell-team/inkwell/server/backend/database"
	"github.com/inkwell-team/inkwell/server/logging"
)

// Client is a client that connects to MongoDB and reads or saves Inkwell
// snapshots. Document keys map onto the collection's native ObjectID
// primary key; key validation happens at the connection boundary, so a
// key reaching this client always converts.
type Client struct {
	config *Config
	client *mongo.Client
}

// Dial creates an instance of Client and dials the given MongoDB.
func Dial(conf *Config) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.ParseConnectionTimeout())
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(conf.ConnectionURI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(ctx, conf.ParsePingTimeout())
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	logging.DefaultLogger().Infof(
		"MongoDB connected, URI: %s, DB: %s",
		conf.ConnectionURI,
		conf.Database,
	)

	return &Client{
		config: conf,
		client: client,
	}, nil
}

// Close all resources of this client.
func (c *Client) Close() error {
	if err := c.client.Disconnect(context.Background()); err != nil {
		return fmt.Errorf("close mongo client: %w", err)
	}
	return nil
}

// FindSnapshotInfoByKey finds the snapshot record of the given key. A
// snapshot field that is not BSON binary is treated as corrupted: the
// field is stripped from the record and ErrSnapshotCorrupted is returned
// alongside the contentless record.
func (c *Client) FindSnapshotInfoByKey(
	ctx context.Context,
	docKey key.Key,
) (*database.SnapshotInfo, error) {
	id, err := c.objectID(docKey)
	if err != nil {
		return nil, err
	}

	result := c.collection().FindOne(ctx, bson.M{"_id": id})
	raw, err := result.Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", docKey, database.ErrSnapshotNotFound)
		}
		return nil, fmt.Errorf("find snapshot of %s: %w", docKey, err)
	}

	info := &database.SnapshotInfo{Key: docKey}
	if updatedAt := raw.Lookup("updated_at"); updatedAt.Type == bsontype.DateTime {
		info.UpdatedAt = updatedAt.Time()
	}

	snapshot := raw.Lookup("snapshot")
	switch snapshot.Type {
	case bsontype.Type(0):
		// record without a snapshot
		return info, nil
	case bsontype.Binary:
		_, data := snapshot.Binary()
		info.Snapshot = data
		return info, nil
	default:
		logging.From(ctx).Warnf(
			"snapshot of %s has unexpected BSON type %s; clearing",
			docKey,
			snapshot.Type,
		)
		if err := c.ClearSnapshotOfKey(ctx, docKey); err != nil {
			logging.From(ctx).Warnf("clear corrupted snapshot of %s: %v", docKey, err)
		}
		return info, fmt.Errorf("%s: %w", docKey, database.ErrSnapshotCorrupted)
	}
}

// UpsertSnapshotInfoByKey replaces the snapshot of the given key and
// refreshes its timestamp, creating the record when absent.
func (c *Client) UpsertSnapshotInfoByKey(
	ctx context.Context,
	docKey key.Key,
	snapshot []byte,
) error {
	id, err := c.objectID(docKey)
	if err != nil {
		return err
	}

	if _, err := c.collection().UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"snapshot":   primitive.Binary{Data: snapshot},
			"updated_at": gotime.Now(),
		},
	}, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert snapshot of %s: %w", docKey, err)
	}
	return nil
}

// ClearSnapshotOfKey strips the snapshot field of the given key.
func (c *Client) ClearSnapshotOfKey(ctx context.Context, docKey key.Key) error {
	id, err := c.objectID(docKey)
	if err != nil {
		return err
	}

	if _, err := c.collection().UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$unset": bson.M{"snapshot": ""},
	}); err != nil {
		return fmt.Errorf("clear snapshot of %s: %w", docKey, err)
	}
	return nil
}

func (c *Client) collection() *mongo.Collection {
	return c.client.Database(c.config.Database).Collection(c.config.Collection)
}

func (c *Client) objectID(docKey key.Key) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(docKey.String())
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%s: %w", docKey, key.ErrInvalidKey)
	}
	return id, nil
}
