package auth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/buemura/zapscan/internal/zap"
)

// ScriptEngine is the part of the control API a script resource needs.
type ScriptEngine interface {
	LoadScript(ctx context.Context, s zap.Script) error
	RemoveScript(ctx context.Context, name string) error
}

// ScriptResource is an authentication script registered with the engine,
// optionally backed by a temporary file this process owns. Release removes
// the registration and the owned file together.
type ScriptResource struct {
	engine   ScriptEngine
	name     string
	path     string
	ownsFile bool
	loaded   bool
}

// InstallScript writes content to a temporary file in dir and registers it
// under name. If registration fails the file is removed before returning.
func InstallScript(ctx context.Context, engine ScriptEngine, dir, name, interpreter, description, content string) (*ScriptResource, error) {
	f, err := os.CreateTemp(dir, name+"-*.js")
	if err != nil {
		return nil, fmt.Errorf("creating script file: %w", err)
	}
	res := &ScriptResource{engine: engine, name: name, path: f.Name(), ownsFile: true}

	_, werr := f.WriteString(content)
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(res.path)
		return nil, fmt.Errorf("writing script file: %w", err)
	}

	if err := res.load(ctx, interpreter, description); err != nil {
		os.Remove(res.path)
		return nil, err
	}
	return res, nil
}

// LoadScriptFile registers an existing file under name. The file belongs to
// the caller and is never deleted.
func LoadScriptFile(ctx context.Context, engine ScriptEngine, path, name, interpreter, description string) (*ScriptResource, error) {
	res := &ScriptResource{engine: engine, name: name, path: path}
	if err := res.load(ctx, interpreter, description); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ScriptResource) load(ctx context.Context, interpreter, description string) error {
	err := s.engine.LoadScript(ctx, zap.Script{
		Name:        s.name,
		Type:        "authentication",
		Engine:      interpreter,
		FilePath:    s.path,
		Description: description,
		Charset:     "UTF-8",
	})
	if err != nil {
		// The engine may have registered the script before the call failed;
		// usually it did not, so a removal error is expected and dropped.
		_ = s.engine.RemoveScript(context.WithoutCancel(ctx), s.name)
		return fmt.Errorf("loading script %q: %w", s.name, err)
	}
	s.loaded = true
	return nil
}

// Name is the engine-side script name.
func (s *ScriptResource) Name() string { return s.name }

// Path is the script file location.
func (s *ScriptResource) Path() string { return s.path }

// Release deregisters the script and deletes the owned file. Both steps are
// attempted even if one fails; a nil receiver or a second call is a no-op.
func (s *ScriptResource) Release(ctx context.Context) error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.loaded {
		s.loaded = false
		if err := s.engine.RemoveScript(ctx, s.name); err != nil {
			errs = append(errs, fmt.Errorf("removing script %q: %w", s.name, err))
		}
	}
	if s.ownsFile {
		s.ownsFile = false
		if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("deleting script file: %w", err))
		}
	}
	return errors.Join(errs...)
}
