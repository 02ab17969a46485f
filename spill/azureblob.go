/*
 * Copyright (c) 2018-2025, NVIDIA CORPORATION. All rights reserved.
 */
package spill

import (
	"context"
	"io"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/pkg/errors"
)

func init() {
	Register("azureblob", func(location string) (Spiller, error) { return NewAzureBlob(location) })
}

type azureStore struct {
	client    *azblob.Client
	container string
}

// NewAzureBlob builds a Spiller backed by an Azure Blob Storage
// container. location is "container/prefix"; the connection string is
// read from AZURE_STORAGE_CONNECTION_STRING, matching the teacher's
// env-var-sourced credential convention for cloud providers.
func NewAzureBlob(location string) (Spiller, error) {
	container, prefix, err := splitLocation(location)
	if err != nil {
		return nil, err
	}
	connStr := os.Getenv("AZURE_STORAGE_CONNECTION_STRING")
	if connStr == "" {
		return nil, errors.New("spill: AZURE_STORAGE_CONNECTION_STRING is not set")
	}
	client, err := azblob.NewClientFromConnectionString(connStr, nil)
	if err != nil {
		return nil, errors.Wrap(err, "spill: creating azure blob client")
	}
	store := &azureStore{client: client, container: container}
	return newObjectSpiller(store, prefix), nil
}

func (a *azureStore) put(ctx context.Context, key string, data []byte) error {
	_, err := a.client.UploadBuffer(ctx, a.container, key, data, nil)
	return err
}

func (a *azureStore) get(ctx context.Context, key string) ([]byte, error) {
	resp, err := a.client.DownloadStream(ctx, a.container, key, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (a *azureStore) name() string { return "azblob://" + a.container }
