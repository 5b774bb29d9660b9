package semantic

import (
	"errors"
	"testing"

	"github.com/codelens-dev/codelens/pkg/xerrors"
)

func kindOf(t *testing.T, err error) xerrors.Kind {
	t.Helper()
	var xe *xerrors.Error
	if !errors.As(err, &xe) {
		t.Fatalf("error %v is not an *xerrors.Error", err)
	}
	return xe.Kind
}
