package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"
)

type tableClient interface {
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	UpsertEntity(ctx context.Context, entity []byte, options *aztables.UpsertEntityOptions) (aztables.UpsertEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
}

// Table stores one entity per visitor key in Azure Table Storage:
// PartitionKey is the visitor, RowKey the key and Value the payload.
type Table struct {
	client tableClient
}

func tableClientOptions() *aztables.ClientOptions {
	return &aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute,
				RetryDelay:    time.Second,
				MaxRetryDelay: 15 * time.Second,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
}

// NewTable connects to the named table using a storage connection string.
func NewTable(connStr, tableName string) (*Table, error) {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, tableClientOptions())
	if err != nil {
		return nil, fmt.Errorf("table service: %w", err)
	}
	return &Table{client: svc.NewClient(tableName)}, nil
}

type valueEntity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	Value        string `json:"Value"`
}

func (t *Table) Get(ctx context.Context, visitorID, key string) ([]byte, error) {
	resp, err := t.client.GetEntity(ctx, visitorID, key, nil)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get entity: %w", err)
	}
	var ent valueEntity
	if err := sonic.Unmarshal(resp.Value, &ent); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	return []byte(ent.Value), nil
}

func (t *Table) Set(ctx context.Context, visitorID, key string, value []byte) error {
	ent := valueEntity{PartitionKey: visitorID, RowKey: key, Value: string(value)}
	payload, err := sonic.Marshal(ent)
	if err != nil {
		return err
	}
	if _, err := t.client.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace}); err != nil {
		return fmt.Errorf("upsert entity: %w", err)
	}
	return nil
}

func (t *Table) Delete(ctx context.Context, visitorID, key string) error {
	if _, err := t.client.DeleteEntity(ctx, visitorID, key, nil); err != nil && !isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("delete entity: %w", err)
	}
	return nil
}

func isStatus(err error, code int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}

type tableCreator interface {
	CreateTable(ctx context.Context, options *aztables.CreateTableOptions) (aztables.CreateTableResponse, error)
}

// EnsureTables creates the named tables, treating existing ones as success.
// Empty names are skipped.
func EnsureTables(ctx context.Context, connStr string, names ...string) error {
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, tableClientOptions())
	if err != nil {
		return fmt.Errorf("table service: %w", err)
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		if err := ensureTable(ctx, svc.NewClient(name), name); err != nil {
			return err
		}
	}
	return nil
}

func ensureTable(ctx context.Context, c tableCreator, name string) error {
	if _, err := c.CreateTable(ctx, nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists) {
			log.WithField("table", name).Debug("table already exists")
			return nil
		}
		return fmt.Errorf("create table %s: %w", name, err)
	}
	log.WithField("table", name).Info("table created")
	return nil
}
