package ids

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

var errInvalidAtoms = pkgerrors.New("ids: invalid atom value")

func errInvalidAtom(a string) error {
	return pkgerrors.WithStack(fmt.Errorf("ids: invalid atom %q", a))
}
