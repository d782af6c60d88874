package ports_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/studio/pkg/ports"
	"github.com/stretchr/testify/assert"
)

func TestChainLoaders(t *testing.T) {
	var calls []string
	loader := func(name string, err error) ports.FileLoader {
		return ports.FileLoaderFunc(func(_ context.Context, path string) error {
			calls = append(calls, name+":"+path)
			return err
		})
	}
	boom := errors.New("boom")

	err := ports.ChainLoaders(loader("validate", nil), loader("stage", nil)).Load(context.Background(), "a.usda")
	assert.NoError(t, err)
	assert.Equal(t, []string{"validate:a.usda", "stage:a.usda"}, calls)

	calls = nil
	err = ports.ChainLoaders(loader("validate", boom), loader("stage", nil)).Load(context.Background(), "b.usda")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"validate:b.usda"}, calls)
}
