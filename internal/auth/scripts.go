package auth

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Generated scripts follow the engine's authentication script contract:
// authenticate plus the three parameter-name functions. Values are emitted
// as JSON string literals, which are also valid script string literals.

const headerScriptSource = `// {{ .Description }}
var HttpRequestHeader = Java.type("org.parosproxy.paros.network.HttpRequestHeader");
var URI = Java.type("org.apache.commons.httpclient.URI");

function authenticate(helper, paramsValues, credentials) {
    var msg = helper.prepareMessage();
    var target = new URI(paramsValues.get("targetUrl"), false);
    msg.setRequestHeader(new HttpRequestHeader(HttpRequestHeader.GET, target, HttpRequestHeader.HTTP11));
    msg.getRequestHeader().setHeader({{ toJson .HeaderName }}, {{ toJson .HeaderValue }});
    helper.sendAndReceive(msg);
    return msg;
}

function getRequiredParamsNames() {
    return {{ toJson .Required }};
}

function getOptionalParamsNames() {
    return {{ toJson .Optional }};
}

function getCredentialsParamsNames() {
    return {{ toJson .Credentials }};
}
`

const oauth2ScriptSource = `// {{ .Description }}
var HttpRequestHeader = Java.type("org.parosproxy.paros.network.HttpRequestHeader");
var URI = Java.type("org.apache.commons.httpclient.URI");
var URLEncoder = Java.type("java.net.URLEncoder");

function formValue(v) {
    return URLEncoder.encode(v, "UTF-8");
}

function authenticate(helper, paramsValues, credentials) {
    var body = "grant_type=client_credentials"
        + "&client_id=" + formValue(credentials.getParam("username"))
        + "&client_secret=" + formValue(credentials.getParam("password"));
{{- if .Scope }}
    body += "&scope=" + formValue({{ toJson .Scope }});
{{- end }}
{{- if .RedirectURI }}
    body += "&redirect_uri=" + formValue({{ toJson .RedirectURI }});
{{- end }}

    var msg = helper.prepareMessage();
    var tokenUri = new URI({{ toJson .TokenURL }}, false);
    msg.setRequestHeader(new HttpRequestHeader(HttpRequestHeader.POST, tokenUri, HttpRequestHeader.HTTP11));
    msg.getRequestHeader().setHeader("Content-Type", "application/x-www-form-urlencoded");
    msg.getRequestHeader().setHeader("Accept", "application/json");
    msg.setRequestBody(body);
    msg.getRequestHeader().setContentLength(msg.getRequestBody().length());
    helper.sendAndReceive(msg);

    var token = JSON.parse(msg.getResponseBody().toString()).access_token;
    if (token) {
        org.zaproxy.zap.extension.script.ScriptVars.setGlobalVar({{ toJson .TokenVar }}, token);
    }
    return msg;
}

function getRequiredParamsNames() {
    return {{ toJson .Required }};
}

function getOptionalParamsNames() {
    return {{ toJson .Optional }};
}

function getCredentialsParamsNames() {
    return {{ toJson .Credentials }};
}
`

var (
	headerScript = template.Must(template.New("header").Funcs(sprig.TxtFuncMap()).Parse(headerScriptSource))
	oauth2Script = template.Must(template.New("oauth2").Funcs(sprig.TxtFuncMap()).Parse(oauth2ScriptSource))
)

type scriptParams struct {
	Required    []string
	Optional    []string
	Credentials []string
}

type headerScriptData struct {
	scriptParams
	Description string
	HeaderName  string
	HeaderValue string
}

type oauth2ScriptData struct {
	scriptParams
	Description string
	TokenURL    string
	Scope       string
	RedirectURI string
	TokenVar    string
}

func renderScript(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s script: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// HeaderScript renders a script that sends name: value on the login request.
func HeaderScript(name, value, description string) (string, error) {
	return renderScript(headerScript, headerScriptData{
		scriptParams: scriptParams{Required: []string{"targetUrl"}, Optional: []string{}, Credentials: []string{}},
		Description:  description,
		HeaderName:   name,
		HeaderValue:  value,
	})
}

// OAuth2Script renders a client-credentials token exchange against tokenURL.
// Client id and secret come from the user's username and password slots.
func OAuth2Script(tokenURL, scope, redirectURI, tokenVar, description string) (string, error) {
	return renderScript(oauth2Script, oauth2ScriptData{
		scriptParams: scriptParams{Required: []string{}, Optional: []string{}, Credentials: []string{"username", "password"}},
		Description:  description,
		TokenURL:     tokenURL,
		Scope:        scope,
		RedirectURI:  redirectURI,
		TokenVar:     tokenVar,
	})
}
