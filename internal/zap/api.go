package zap

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/buemura/zapscan/pkg/scanerr"
)

// AuthMethod names an authentication method known to the engine.
type AuthMethod string

const (
	FormBasedAuthentication   AuthMethod = "formBasedAuthentication"
	JSONBasedAuthentication   AuthMethod = "jsonBasedAuthentication"
	ScriptBasedAuthentication AuthMethod = "scriptBasedAuthentication"
	HTTPAuthentication        AuthMethod = "httpAuthentication"
)

// Script describes an authentication script to register with the engine.
type Script struct {
	Name        string
	Type        string // "authentication"
	Engine      string // e.g. "Oracle Nashorn"
	FilePath    string
	Description string
	Charset     string
}

// SpiderRequest starts a crawl.
type SpiderRequest struct {
	URL         string
	ContextName string
	MaxChildren int
	Recurse     bool
	SubtreeOnly bool
}

// ActiveScanRequest starts an active scan.
type ActiveScanRequest struct {
	URL         string
	Recurse     bool
	InScopeOnly bool
	PolicyName  string
	Method      string
	PostData    string
	ContextID   string
}

// NewContext creates a context and returns its id.
func (c *Client) NewContext(ctx context.Context, name string) (string, error) {
	return c.actionValue(ctx, "context", "newContext", "contextId", url.Values{"contextName": {name}})
}

// RemoveContext deletes a context by name.
func (c *Client) RemoveContext(ctx context.Context, name string) error {
	return c.action(ctx, "context", "removeContext", url.Values{"contextName": {name}})
}

func (c *Client) IncludeInContext(ctx context.Context, contextName, regex string) error {
	return c.action(ctx, "context", "includeInContext", url.Values{"contextName": {contextName}, "regex": {regex}})
}

func (c *Client) ExcludeFromContext(ctx context.Context, contextName, regex string) error {
	return c.action(ctx, "context", "excludeFromContext", url.Values{"contextName": {contextName}, "regex": {regex}})
}

// SetAuthenticationMethod installs method on the context. params is sent
// url-encoded as the method's config params.
func (c *Client) SetAuthenticationMethod(ctx context.Context, contextID string, method AuthMethod, params url.Values) error {
	return c.action(ctx, "authentication", "setAuthenticationMethod", url.Values{
		"contextId":              {contextID},
		"authMethodName":         {string(method)},
		"authMethodConfigParams": {params.Encode()},
	})
}

func (c *Client) SetLoggedInIndicator(ctx context.Context, contextID, regex string) error {
	return c.action(ctx, "authentication", "setLoggedInIndicator", url.Values{
		"contextId":              {contextID},
		"loggedInIndicatorRegex": {regex},
	})
}

func (c *Client) SetLoggedOutIndicator(ctx context.Context, contextID, regex string) error {
	return c.action(ctx, "authentication", "setLoggedOutIndicator", url.Values{
		"contextId":               {contextID},
		"loggedOutIndicatorRegex": {regex},
	})
}

// NewUser creates a user in the context and returns its id.
func (c *Client) NewUser(ctx context.Context, contextID, name string) (string, error) {
	return c.actionValue(ctx, "users", "newUser", "userId", url.Values{"contextId": {contextID}, "name": {name}})
}

func (c *Client) SetAuthenticationCredentials(ctx context.Context, contextID, userID string, creds url.Values) error {
	return c.action(ctx, "users", "setAuthenticationCredentials", url.Values{
		"contextId":                   {contextID},
		"userId":                      {userID},
		"authCredentialsConfigParams": {creds.Encode()},
	})
}

func (c *Client) SetUserEnabled(ctx context.Context, contextID, userID string, enabled bool) error {
	return c.action(ctx, "users", "setUserEnabled", url.Values{
		"contextId": {contextID},
		"userId":    {userID},
		"enabled":   {boolParam(enabled)},
	})
}

func (c *Client) RemoveUser(ctx context.Context, contextID, userID string) error {
	return c.action(ctx, "users", "removeUser", url.Values{"contextId": {contextID}, "userId": {userID}})
}

// LoadScript registers a script file with the engine.
func (c *Client) LoadScript(ctx context.Context, s Script) error {
	params := url.Values{
		"scriptName":        {s.Name},
		"scriptType":        {s.Type},
		"scriptEngine":      {s.Engine},
		"fileName":          {s.FilePath},
		"scriptDescription": {s.Description},
	}
	if s.Charset != "" {
		params.Set("charset", s.Charset)
	}
	return c.action(ctx, "script", "load", params)
}

func (c *Client) RemoveScript(ctx context.Context, name string) error {
	return c.action(ctx, "script", "remove", url.Values{"scriptName": {name}})
}

// SetClientCertificate installs a PKCS#12 client certificate for outgoing
// connections.
func (c *Client) SetClientCertificate(ctx context.Context, path, password string) error {
	return c.action(ctx, "network", "addPkcs12ClientCertificate", url.Values{
		"filePath": {path},
		"password": {password},
		"index":    {"0"},
	})
}

// SetSpiderOptions forwards crawl bounds. A depth of 0 is sent as is and
// means unlimited; zero duration or threads leave the engine unchanged.
func (c *Client) SetSpiderOptions(ctx context.Context, maxDepth int, maxDurationMinutes int, threads int) error {
	if maxDepth >= 0 {
		if err := c.action(ctx, "spider", "setOptionMaxDepth", url.Values{"Integer": {strconv.Itoa(maxDepth)}}); err != nil {
			return err
		}
	}
	opts := []struct {
		name  string
		value int
	}{
		{"setOptionMaxDuration", maxDurationMinutes},
		{"setOptionThreadCount", threads},
	}
	for _, o := range opts {
		if o.value <= 0 {
			continue
		}
		if err := c.action(ctx, "spider", o.name, url.Values{"Integer": {strconv.Itoa(o.value)}}); err != nil {
			return err
		}
	}
	return nil
}

// SpiderScan starts a crawl and returns its scan id.
func (c *Client) SpiderScan(ctx context.Context, r SpiderRequest) (string, error) {
	params := url.Values{
		"url":         {r.URL},
		"recurse":     {boolParam(r.Recurse)},
		"subtreeOnly": {boolParam(r.SubtreeOnly)},
	}
	if r.MaxChildren > 0 {
		params.Set("maxChildren", strconv.Itoa(r.MaxChildren))
	}
	if r.ContextName != "" {
		params.Set("contextName", r.ContextName)
	}
	return c.actionValue(ctx, "spider", "scan", "scan", params)
}

// SpiderStatus returns crawl progress 0..100.
func (c *Client) SpiderStatus(ctx context.Context, scanID string) (int, error) {
	return c.viewInt(ctx, "spider", "status", "status", url.Values{"scanId": {scanID}})
}

func (c *Client) SpiderStop(ctx context.Context, scanID string) error {
	return c.action(ctx, "spider", "stop", url.Values{"scanId": {scanID}})
}

// PassiveRecordsToScan returns the passive analysis backlog.
func (c *Client) PassiveRecordsToScan(ctx context.Context) (int, error) {
	return c.viewInt(ctx, "pscan", "recordsToScan", "recordsToScan", nil)
}

// PassiveClearQueue drops the passive analysis backlog.
func (c *Client) PassiveClearQueue(ctx context.Context) error {
	return c.action(ctx, "pscan", "clearQueue", nil)
}

// SetActiveScanThreads sets the active scanner's threads per host.
func (c *Client) SetActiveScanThreads(ctx context.Context, threads int) error {
	return c.action(ctx, "ascan", "setOptionThreadPerHost", url.Values{"Integer": {strconv.Itoa(threads)}})
}

// ActiveScan starts an active scan and returns its scan id.
func (c *Client) ActiveScan(ctx context.Context, r ActiveScanRequest) (string, error) {
	params := url.Values{
		"url":            {r.URL},
		"recurse":        {boolParam(r.Recurse)},
		"inScopeOnly":    {boolParam(r.InScopeOnly)},
		"scanPolicyName": {r.PolicyName},
		"method":         {r.Method},
		"postData":       {r.PostData},
	}
	if r.ContextID != "" {
		params.Set("contextId", r.ContextID)
	}
	return c.actionValue(ctx, "ascan", "scan", "scan", params)
}

// ActiveScanStatus returns active scan progress 0..100.
func (c *Client) ActiveScanStatus(ctx context.Context, scanID string) (int, error) {
	return c.viewInt(ctx, "ascan", "status", "status", url.Values{"scanId": {scanID}})
}

func (c *Client) ActiveScanStop(ctx context.Context, scanID string) error {
	return c.action(ctx, "ascan", "stop", url.Values{"scanId": {scanID}})
}

func (c *Client) AddScanPolicy(ctx context.Context, name, threshold, strength string) error {
	return c.action(ctx, "ascan", "addScanPolicy", url.Values{
		"scanPolicyName": {name},
		"alertThreshold": {threshold},
		"attackStrength": {strength},
	})
}

func (c *Client) RemoveScanPolicy(ctx context.Context, name string) error {
	return c.action(ctx, "ascan", "removeScanPolicy", url.Values{"scanPolicyName": {name}})
}

func (c *Client) DisableAllScanners(ctx context.Context, policyName string) error {
	return c.action(ctx, "ascan", "disableAllScanners", url.Values{"scanPolicyName": {policyName}})
}

func (c *Client) EnableAllScanners(ctx context.Context, policyName string) error {
	return c.action(ctx, "ascan", "enableAllScanners", url.Values{"scanPolicyName": {policyName}})
}

// EnableScanners enables the given rule ids in a policy.
func (c *Client) EnableScanners(ctx context.Context, policyName string, ids []int) error {
	return c.action(ctx, "ascan", "enableScanners", url.Values{
		"ids":            {joinIDs(ids)},
		"scanPolicyName": {policyName},
	})
}

// DisableScanners disables the given rule ids in a policy.
func (c *Client) DisableScanners(ctx context.Context, policyName string, ids []int) error {
	return c.action(ctx, "ascan", "disableScanners", url.Values{
		"ids":            {joinIDs(ids)},
		"scanPolicyName": {policyName},
	})
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// Version returns the engine's version string.
func (c *Client) Version(ctx context.Context) (string, error) {
	body, err := c.view(ctx, "core", "version", nil)
	if err != nil {
		return "", err
	}
	v, err := stringField(body, "version")
	if err != nil {
		return "", &scanerr.ExternalServiceError{Endpoint: c.endpoint("view", "core", "version"), StatusCode: http.StatusOK, Err: err}
	}
	return v, nil
}
