package lexer

import cerrors "github.com/cwbudde/go-jactl/internal/errors"

// Position and Source are aliases onto the errors package's definitions so
// that both the lexer and the CompileError type it raises share one
// representation without an import cycle (errors.Position is the shared
// type; lexer just names it locally for convenience).
type Position = cerrors.Position
type Source = cerrors.Source
