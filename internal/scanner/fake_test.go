package scanner

import (
	"context"
	"errors"
	"net/url"
	"sync"

	"github.com/buemura/zapscan/internal/zap"
	"github.com/buemura/zapscan/pkg/types"
)

// fakeEngine is a recording in-memory engine. Status calls walk through the
// configured sequences and then repeat the last value.
type fakeEngine struct {
	mu     sync.Mutex
	calls  []string
	failOn map[string]error

	spiderProgress   []int
	passiveRemaining []int
	activeProgress   []int
	alertPages       [][]types.Alert

	activeRequests []zap.ActiveScanRequest
	includes       []string
	excludes       []string
	alertOffsets   []int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		failOn:           make(map[string]error),
		spiderProgress:   []int{50, 100},
		passiveRemaining: []int{3, 0},
		activeProgress:   []int{20, 100},
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

func (f *fakeEngine) indexOf(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.calls {
		if c == op {
			return i
		}
	}
	return -1
}

func next(seq *[]int) int {
	v := (*seq)[0]
	if len(*seq) > 1 {
		*seq = (*seq)[1:]
	}
	return v
}

func (f *fakeEngine) NewContext(ctx context.Context, name string) (string, error) {
	if err := f.record("NewContext"); err != nil {
		return "", err
	}
	return "1", nil
}

func (f *fakeEngine) RemoveContext(ctx context.Context, name string) error {
	return f.record("RemoveContext")
}

func (f *fakeEngine) IncludeInContext(ctx context.Context, contextName, regex string) error {
	f.includes = append(f.includes, regex)
	return f.record("IncludeInContext")
}

func (f *fakeEngine) ExcludeFromContext(ctx context.Context, contextName, regex string) error {
	f.excludes = append(f.excludes, regex)
	return f.record("ExcludeFromContext")
}

func (f *fakeEngine) SetAuthenticationMethod(ctx context.Context, contextID string, method zap.AuthMethod, params url.Values) error {
	return f.record("SetAuthenticationMethod")
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
	return "9", nil
}

func (f *fakeEngine) SetAuthenticationCredentials(ctx context.Context, contextID, userID string, creds url.Values) error {
	return f.record("SetAuthenticationCredentials")
}

func (f *fakeEngine) SetUserEnabled(ctx context.Context, contextID, userID string, enabled bool) error {
	return f.record("SetUserEnabled")
}

func (f *fakeEngine) RemoveUser(ctx context.Context, contextID, userID string) error {
	return f.record("RemoveUser")
}

func (f *fakeEngine) LoadScript(ctx context.Context, s zap.Script) error {
	return f.record("LoadScript")
}

func (f *fakeEngine) RemoveScript(ctx context.Context, name string) error {
	return f.record("RemoveScript")
}

func (f *fakeEngine) SetClientCertificate(ctx context.Context, path, password string) error {
	return f.record("SetClientCertificate")
}

func (f *fakeEngine) AddScanPolicy(ctx context.Context, name, threshold, strength string) error {
	return f.record("AddScanPolicy")
}

func (f *fakeEngine) RemoveScanPolicy(ctx context.Context, name string) error {
	return f.record("RemoveScanPolicy")
}

func (f *fakeEngine) DisableAllScanners(ctx context.Context, policyName string) error {
	return f.record("DisableAllScanners")
}

func (f *fakeEngine) EnableScanners(ctx context.Context, policyName string, ids []int) error {
	return f.record("EnableScanners")
}

func (f *fakeEngine) DisableScanners(ctx context.Context, policyName string, ids []int) error {
	return f.record("DisableScanners")
}

func (f *fakeEngine) SetSpiderOptions(ctx context.Context, maxDepth, maxDurationMinutes, threads int) error {
	return f.record("SetSpiderOptions")
}

func (f *fakeEngine) SpiderScan(ctx context.Context, r zap.SpiderRequest) (string, error) {
	if err := f.record("SpiderScan"); err != nil {
		return "", err
	}
	return "s1", nil
}

func (f *fakeEngine) SpiderStatus(ctx context.Context, scanID string) (int, error) {
	if err := f.record("SpiderStatus"); err != nil {
		return 0, err
	}
	return next(&f.spiderProgress), nil
}

func (f *fakeEngine) SpiderStop(ctx context.Context, scanID string) error {
	return f.record("SpiderStop")
}

func (f *fakeEngine) PassiveRecordsToScan(ctx context.Context) (int, error) {
	if err := f.record("PassiveRecordsToScan"); err != nil {
		return 0, err
	}
	return next(&f.passiveRemaining), nil
}

func (f *fakeEngine) PassiveClearQueue(ctx context.Context) error {
	return f.record("PassiveClearQueue")
}

func (f *fakeEngine) SetActiveScanThreads(ctx context.Context, threads int) error {
	return f.record("SetActiveScanThreads")
}

func (f *fakeEngine) ActiveScan(ctx context.Context, r zap.ActiveScanRequest) (string, error) {
	if err := f.record("ActiveScan"); err != nil {
		return "", err
	}
	f.activeRequests = append(f.activeRequests, r)
	return "a1", nil
}

func (f *fakeEngine) ActiveScanStatus(ctx context.Context, scanID string) (int, error) {
	if err := f.record("ActiveScanStatus"); err != nil {
		return 0, err
	}
	return next(&f.activeProgress), nil
}

func (f *fakeEngine) ActiveScanStop(ctx context.Context, scanID string) error {
	return f.record("ActiveScanStop")
}

func (f *fakeEngine) Alerts(ctx context.Context, baseURL string, start, count int) ([]types.Alert, error) {
	if err := f.record("Alerts"); err != nil {
		return nil, err
	}
	f.alertOffsets = append(f.alertOffsets, start)
	page := start / count
	if page >= len(f.alertPages) {
		return nil, nil
	}
	return f.alertPages[page], nil
}
