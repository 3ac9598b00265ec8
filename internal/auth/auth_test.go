package auth

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/buemura/zapscan/internal/zap"
	"github.com/buemura/zapscan/pkg/scanerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T, cfg Config, engine *fakeEngine) Provider {
	t.Helper()
	p, err := DefaultRegistry().New(cfg, engine, Options{ScriptDir: t.TempDir()})
	require.NoError(t, err)
	return p
}

func formConfig() Config {
	return Config{
		Type:          FormBased,
		LoginURL:      "https://x/login",
		UsernameField: "email",
		PasswordField: "pass",
		Username:      "alice",
		Password:      "s3cret",
	}
}

func TestFormProvider_DefaultLoginRequestData(t *testing.T) {
	engine := newFakeEngine()
	p := newProvider(t, formConfig(), engine)

	require.NoError(t, p.SetupContext(context.Background(), "4"))
	assert.True(t, p.Ready())

	require.Len(t, engine.methods, 1)
	m := engine.methods[0]
	assert.Equal(t, zap.FormBasedAuthentication, m.method)
	assert.Equal(t, "4", m.contextID)
	assert.Equal(t, "https://x/login", m.params.Get("loginUrl"))
	assert.Equal(t, "email={%username%}&pass={%password%}", m.params.Get("loginRequestData"))

	assert.Equal(t, []string{
		"SetAuthenticationMethod", "NewUser", "SetAuthenticationCredentials", "SetUserEnabled",
	}, engine.calls)
	assert.Equal(t, "alice", engine.creds.Get("username"))
	assert.Equal(t, "s3cret", engine.creds.Get("password"))
}

func TestFormProvider_CustomRequestDataIsVerbatim(t *testing.T) {
	cfg := formConfig()
	cfg.UsernameField, cfg.PasswordField = "", ""
	cfg.LoginRequestData = "user={%username%}&pw={%password%}&remember=1"

	engine := newFakeEngine()
	p := newProvider(t, cfg, engine)
	require.NoError(t, p.SetupContext(context.Background(), "1"))

	assert.Equal(t, cfg.LoginRequestData, engine.methods[0].params.Get("loginRequestData"))
}

func TestFormProvider_JSONBased(t *testing.T) {
	cfg := formConfig()
	cfg.Type = JSONBased
	assert.Equal(t, `{"email":"{%username%}","pass":"{%password%}"}`, LoginRequestData(cfg))

	engine := newFakeEngine()
	p := newProvider(t, cfg, engine)
	require.NoError(t, p.SetupContext(context.Background(), "1"))
	assert.Equal(t, zap.JSONBasedAuthentication, engine.methods[0].method)
}

func TestLoginRequestData_QuotesFieldNames(t *testing.T) {
	cfg := formConfig()
	cfg.Type = JSONBased
	cfg.UsernameField = `user"name`
	cfg.PasswordField = `pass\word`

	data := LoginRequestData(cfg)
	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(data), &body))
	assert.Equal(t, "{%username%}", body[`user"name`])
	assert.Equal(t, "{%password%}", body[`pass\word`])

	cfg.Type = FormBased
	cfg.UsernameField = "user&admin=1"
	assert.Equal(t, "user%26admin%3D1={%username%}&pass%5Cword={%password%}", LoginRequestData(cfg))
}

func TestFormProvider_Indicators(t *testing.T) {
	cfg := formConfig()
	cfg.LoggedInIndicator = `\QSign out\E`
	cfg.LoggedOutIndicator = `\QSign in\E`

	engine := newFakeEngine()
	p := newProvider(t, cfg, engine)
	require.NoError(t, p.SetupContext(context.Background(), "1"))

	assert.Equal(t, 1, engine.count("SetLoggedInIndicator"))
	assert.Equal(t, 1, engine.count("SetLoggedOutIndicator"))
}

func TestSetup_CreatesContext(t *testing.T) {
	engine := newFakeEngine()
	p := newProvider(t, formConfig(), engine)

	id, err := p.Setup(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, "1", id)
	assert.Equal(t, "NewContext", engine.calls[0])
}

func TestSetup_ContextFailureIsAuthenticationError(t *testing.T) {
	engine := newFakeEngine()
	engine.fail("NewContext")
	p := newProvider(t, formConfig(), engine)

	_, err := p.Setup(context.Background(), "shop")
	assert.ErrorIs(t, err, scanerr.ErrAuthentication)
	assert.False(t, p.Ready())
}

func TestCleanup_IsIdempotent(t *testing.T) {
	engine := newFakeEngine()
	p := newProvider(t, formConfig(), engine)
	require.NoError(t, p.SetupContext(context.Background(), "1"))

	require.NoError(t, p.Cleanup(context.Background(), "1"))
	require.NoError(t, p.Cleanup(context.Background(), "1"))

	assert.Equal(t, 1, engine.count("RemoveUser"))
	assert.False(t, p.Ready())
}

func TestCleanup_BeforeSetupMakesNoCalls(t *testing.T) {
	engine := newFakeEngine()
	p := newProvider(t, formConfig(), engine)

	require.NoError(t, p.Cleanup(context.Background(), "1"))
	assert.Empty(t, engine.calls)
}

func TestCleanup_AfterPartialSetup(t *testing.T) {
	engine := newFakeEngine()
	engine.fail("SetUserEnabled")
	p := newProvider(t, formConfig(), engine)

	err := p.SetupContext(context.Background(), "1")
	require.Error(t, err)
	var authErr *scanerr.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "enable user", authErr.Op)
	assert.False(t, p.Ready())

	// The user exists remotely even though setup failed, so it is removed.
	require.NoError(t, p.Cleanup(context.Background(), "1"))
	assert.Equal(t, 1, engine.count("RemoveUser"))
}

func TestCleanup_NoUserWhenCreationFailed(t *testing.T) {
	engine := newFakeEngine()
	engine.fail("NewUser")
	p := newProvider(t, formConfig(), engine)

	require.Error(t, p.SetupContext(context.Background(), "1"))
	require.NoError(t, p.Cleanup(context.Background(), "1"))
	assert.Zero(t, engine.count("RemoveUser"))
}

func TestCleanup_FailureIsReportedOnce(t *testing.T) {
	engine := newFakeEngine()
	engine.fail("RemoveUser")
	p := newProvider(t, formConfig(), engine)
	require.NoError(t, p.SetupContext(context.Background(), "1"))

	assert.ErrorIs(t, p.Cleanup(context.Background(), "1"), scanerr.ErrAuthentication)
	assert.NoError(t, p.Cleanup(context.Background(), "1"))
	assert.Equal(t, 1, engine.count("RemoveUser"))
}

func TestSetupContext_RejectsSecondSetup(t *testing.T) {
	engine := newFakeEngine()
	p := newProvider(t, formConfig(), engine)
	require.NoError(t, p.SetupContext(context.Background(), "1"))

	assert.ErrorIs(t, p.SetupContext(context.Background(), "1"), errAlreadySetUp)
}

func TestAPIKeyProvider_InstallsScript(t *testing.T) {
	engine := newFakeEngine()
	p := newProvider(t, Config{Type: APIKey, HeaderName: "X-API-Key", HeaderValue: "k-123"}, engine)

	require.NoError(t, p.SetupContext(context.Background(), "2"))

	script, body := engine.onlyScript()
	assert.Equal(t, "authentication", script.Type)
	assert.Equal(t, DefaultScriptEngine, script.Engine)
	assert.Contains(t, script.Name, "apikey-auth-")
	assert.Contains(t, body, `setHeader("X-API-Key", "k-123")`)
	for _, fn := range []string{"authenticate(", "getRequiredParamsNames(", "getOptionalParamsNames(", "getCredentialsParamsNames("} {
		assert.Contains(t, body, "function "+fn)
	}
	assert.FileExists(t, script.FilePath)

	m := engine.methods[0]
	assert.Equal(t, zap.ScriptBasedAuthentication, m.method)
	assert.Equal(t, script.Name, m.params.Get("scriptName"))
	assert.Zero(t, engine.count("NewUser"))
}

func TestAPIKeyProvider_CleanupRemovesScriptAndFile(t *testing.T) {
	engine := newFakeEngine()
	p := newProvider(t, Config{Type: APIKey, HeaderName: "X-API-Key", HeaderValue: "k"}, engine)
	require.NoError(t, p.SetupContext(context.Background(), "2"))
	script, _ := engine.onlyScript()

	require.NoError(t, p.Cleanup(context.Background(), "2"))
	require.NoError(t, p.Cleanup(context.Background(), "2"))

	assert.Equal(t, 1, engine.count("RemoveScript"))
	assert.NoFileExists(t, script.FilePath)
}

func TestAPIKeyProvider_LoadFailureDeletesFile(t *testing.T) {
	dir := t.TempDir()
	engine := newFakeEngine()
	engine.fail("LoadScript")
	p, err := DefaultRegistry().New(Config{Type: APIKey, HeaderName: "X-API-Key", HeaderValue: "k"}, engine, Options{ScriptDir: dir})
	require.NoError(t, err)

	require.ErrorIs(t, p.SetupContext(context.Background(), "2"), scanerr.ErrAuthentication)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	// One deregistration in case the engine kept the script; Cleanup does not repeat it.
	assert.Equal(t, 1, engine.count("RemoveScript"))
	require.NoError(t, p.Cleanup(context.Background(), "2"))
	assert.Equal(t, 1, engine.count("RemoveScript"))
}

func TestInstallScript_LoadFailureDeregisters(t *testing.T) {
	engine := newFakeEngine()
	engine.fail("LoadScript")

	_, err := InstallScript(context.Background(), engine, t.TempDir(), "hdr-auth", DefaultScriptEngine, "test", "// script")
	require.Error(t, err)
	assert.Equal(t, []string{"LoadScript", "RemoveScript"}, engine.calls)
}

func TestHeaderScript_EscapesValues(t *testing.T) {
	body, err := HeaderScript("X-Key", `abc\`, "test")
	require.NoError(t, err)
	assert.Contains(t, body, `setHeader("X-Key", "abc\\")`)

	body, err = HeaderScript("X-Key", "a\u2028b", "test")
	require.NoError(t, err)
	assert.Contains(t, body, `setHeader("X-Key", "a\u2028b")`)
	assert.NotContains(t, body, "\u2028")
}

func TestAPIKeyProvider_MethodFailureStillReleasesScript(t *testing.T) {
	engine := newFakeEngine()
	engine.fail("SetAuthenticationMethod")
	p := newProvider(t, Config{Type: APIKey, HeaderName: "X-API-Key", HeaderValue: "k"}, engine)

	require.Error(t, p.SetupContext(context.Background(), "2"))
	script, _ := engine.onlyScript()

	require.NoError(t, p.Cleanup(context.Background(), "2"))
	assert.Equal(t, 1, engine.count("RemoveScript"))
	assert.NoFileExists(t, script.FilePath)
}

func TestJWTProvider_BearerHeader(t *testing.T) {
	engine := newFakeEngine()
	p := newProvider(t, Config{Type: JWT, Token: "eyJ.abc.def"}, engine)

	require.NoError(t, p.SetupContext(context.Background(), "3"))
	_, body := engine.onlyScript()
	assert.Contains(t, body, `setHeader("Authorization", "Bearer eyJ.abc.def")`)
}

func TestOAuth2Provider(t *testing.T) {
	engine := newFakeEngine()
	p := newProvider(t, Config{
		Type:         OAuth2,
		ClientID:     "client-1",
		ClientSecret: "shh",
		TokenURL:     "https://auth.example.com/token",
		Scope:        "read write",
	}, engine)

	require.NoError(t, p.SetupContext(context.Background(), "5"))

	script, body := engine.onlyScript()
	assert.Contains(t, script.Name, "oauth2-auth-")
	assert.Contains(t, body, `new URI("https://auth.example.com/token", false)`)
	assert.Contains(t, body, `formValue("read write")`)
	assert.NotContains(t, body, "redirect_uri")
	assert.Contains(t, body, `["username","password"]`)

	assert.Equal(t, "client-1", engine.creds.Get("username"))
	assert.Equal(t, "shh", engine.creds.Get("password"))

	require.NoError(t, p.Cleanup(context.Background(), "5"))
	assert.Equal(t, 1, engine.count("RemoveScript"))
	assert.Equal(t, 1, engine.count("RemoveUser"))
	assert.NoFileExists(t, script.FilePath)
}

func TestCertificateProvider(t *testing.T) {
	cert := filepath.Join(t.TempDir(), "client.p12")
	require.NoError(t, os.WriteFile(cert, []byte("pkcs12"), 0o600))

	engine := newFakeEngine()
	p := newProvider(t, Config{Type: Certificate, CertificatePath: cert, CertificatePassword: "pw"}, engine)

	require.NoError(t, p.SetupContext(context.Background(), "1"))
	assert.True(t, p.Ready())
	assert.Equal(t, []string{"SetClientCertificate"}, engine.calls)

	require.NoError(t, p.Cleanup(context.Background(), "1"))
	assert.Equal(t, []string{"SetClientCertificate"}, engine.calls)
}

func TestHTTPProvider(t *testing.T) {
	engine := newFakeEngine()
	p := newProvider(t, Config{
		Type:     HTTPDigest,
		LoginURL: "http://intranet.local:8081/",
		Realm:    "staff",
		Username: "bob",
		Password: "pw",
	}, engine)

	require.NoError(t, p.SetupContext(context.Background(), "1"))
	m := engine.methods[0]
	assert.Equal(t, zap.HTTPAuthentication, m.method)
	assert.Equal(t, "intranet.local", m.params.Get("hostname"))
	assert.Equal(t, "staff", m.params.Get("realm"))
	assert.Equal(t, "8081", m.params.Get("port"))
}

func TestScriptProvider_KeepsUserFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "login.js")
	require.NoError(t, os.WriteFile(path, []byte("function authenticate() {}"), 0o600))

	engine := newFakeEngine()
	p := newProvider(t, Config{
		Type:       ScriptBased,
		ScriptPath: path,
		Params:     map[string]string{"loginUrl": "https://x/login", "tenant": "acme"},
	}, engine)

	require.NoError(t, p.SetupContext(context.Background(), "1"))
	m := engine.methods[0]
	assert.Equal(t, "acme", m.params.Get("tenant"))
	assert.Zero(t, engine.count("NewUser"))

	require.NoError(t, p.Cleanup(context.Background(), "1"))
	assert.Equal(t, 1, engine.count("RemoveScript"))
	assert.FileExists(t, path)
}

func TestRegistry_NewValidatesBeforeBuilding(t *testing.T) {
	engine := newFakeEngine()
	_, err := DefaultRegistry().New(Config{Type: FormBased, LoginURL: "https://x/login"}, engine, Options{})

	var cfgErr *scanerr.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "username", cfgErr.Field)
	assert.Empty(t, engine.calls)
}

func TestRegistry_Types(t *testing.T) {
	assert.Len(t, DefaultRegistry().Types(), len(Types))
	assert.Empty(t, NewRegistry().Types())
}
