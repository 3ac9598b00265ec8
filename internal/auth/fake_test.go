package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"

	"github.com/buemura/zapscan/internal/zap"
)

type methodCall struct {
	contextID string
	method    zap.AuthMethod
	params    url.Values
}

// fakeEngine records every call and fails the operations named in failOn.
type fakeEngine struct {
	mu      sync.Mutex
	calls   []string
	methods []methodCall
	creds   url.Values
	scripts map[string]zap.Script
	// scriptBodies captures file contents at load time.
	scriptBodies map[string]string
	failOn       map[string]error
	nextUser     int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		scripts:      make(map[string]zap.Script),
		scriptBodies: make(map[string]string),
		failOn:       make(map[string]error),
	}
}

func (f *fakeEngine) fail(op string) { f.failOn[op] = errors.New(op + " failed") }

func (f *fakeEngine) record(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op)
	return f.failOn[op]
}

func (f *fakeEngine) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (f *fakeEngine) NewContext(ctx context.Context, name string) (string, error) {
	if err := f.record("NewContext"); err != nil {
		return "", err
	}
	return "1", nil
}

func (f *fakeEngine) SetAuthenticationMethod(ctx context.Context, contextID string, method zap.AuthMethod, params url.Values) error {
	if err := f.record("SetAuthenticationMethod"); err != nil {
		return err
	}
	f.methods = append(f.methods, methodCall{contextID: contextID, method: method, params: params})
	return nil
}

func (f *fakeEngine) SetLoggedInIndicator(ctx context.Context, contextID, regex string) error {
	return f.record("SetLoggedInIndicator")
}

func (f *fakeEngine) SetLoggedOutIndicator(ctx context.Context, contextID, regex string) error {
	return f.record("SetLoggedOutIndicator")
}

func (f *fakeEngine) NewUser(ctx context.Context, contextID, name string) (string, error) {
	if err := f.record("NewUser"); err != nil {
		return "", err
	}
	f.nextUser++
	return fmt.Sprint(f.nextUser), nil
}

func (f *fakeEngine) SetAuthenticationCredentials(ctx context.Context, contextID, userID string, creds url.Values) error {
	if err := f.record("SetAuthenticationCredentials"); err != nil {
		return err
	}
	f.creds = creds
	return nil
}

func (f *fakeEngine) SetUserEnabled(ctx context.Context, contextID, userID string, enabled bool) error {
	return f.record("SetUserEnabled")
}

func (f *fakeEngine) RemoveUser(ctx context.Context, contextID, userID string) error {
	return f.record("RemoveUser")
}

func (f *fakeEngine) LoadScript(ctx context.Context, s zap.Script) error {
	if err := f.record("LoadScript"); err != nil {
		return err
	}
	body, err := os.ReadFile(s.FilePath)
	if err != nil {
		return err
	}
	f.scripts[s.Name] = s
	f.scriptBodies[s.Name] = string(body)
	return nil
}

func (f *fakeEngine) RemoveScript(ctx context.Context, name string) error {
	if err := f.record("RemoveScript"); err != nil {
		return err
	}
	delete(f.scripts, name)
	return nil
}

func (f *fakeEngine) SetClientCertificate(ctx context.Context, path, password string) error {
	return f.record("SetClientCertificate")
}

func (f *fakeEngine) onlyScript() (zap.Script, string) {
	for name, s := range f.scripts {
		return s, f.scriptBodies[name]
	}
	return zap.Script{}, ""
}
