package memstore

import (
	"testing"

	"github.com/inkforge-labs/inkforge/pkg/store/storetest"
)

func TestBackend(t *testing.T) {
	storetest.Run(t, New())
}
