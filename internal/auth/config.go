package auth

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/buemura/zapscan/pkg/scanerr"
)

// Type is the authentication scheme of a Config.
type Type string

const (
	FormBased   Type = "FORM_BASED"
	ScriptBased Type = "SCRIPT_BASED"
	HTTPBasic   Type = "HTTP_BASIC"
	HTTPDigest  Type = "HTTP_DIGEST"
	JSONBased   Type = "JSON_BASED"
	OAuth2      Type = "OAUTH2"
	Certificate Type = "CERTIFICATE"
	APIKey      Type = "API_KEY"
	JWT         Type = "JWT"
)

// Types lists every supported scheme.
var Types = []Type{FormBased, ScriptBased, HTTPBasic, HTTPDigest, JSONBased, OAuth2, Certificate, APIKey, JWT}

// ParseType parses a scheme name case-insensitively; dashes are accepted
// in place of underscores.
func ParseType(raw string) (Type, error) {
	norm := Type(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), "-", "_")))
	for _, t := range Types {
		if t == norm {
			return t, nil
		}
	}
	return "", scanerr.Configf("auth.type", "unknown authentication type %q", raw)
}

// DefaultCertificateType is used when CertificateType is empty.
const DefaultCertificateType = "PKCS12"

// Config describes how to authenticate against the target. Only the fields
// relevant to Type are read; Validate reports the ones that are missing.
type Config struct {
	Type Type `json:"type" yaml:"type" mapstructure:"type"`

	// Form, JSON and HTTP schemes.
	LoginURL           string `json:"login_url,omitempty" yaml:"login_url" mapstructure:"login_url"`
	UsernameField      string `json:"username_field,omitempty" yaml:"username_field" mapstructure:"username_field"`
	PasswordField      string `json:"password_field,omitempty" yaml:"password_field" mapstructure:"password_field"`
	Username           string `json:"username,omitempty" yaml:"username" mapstructure:"username"`
	Password           string `json:"password,omitempty" yaml:"password" mapstructure:"password"`
	LoginRequestData   string `json:"login_request_data,omitempty" yaml:"login_request_data" mapstructure:"login_request_data"`
	LoggedInIndicator  string `json:"logged_in_indicator,omitempty" yaml:"logged_in_indicator" mapstructure:"logged_in_indicator"`
	LoggedOutIndicator string `json:"logged_out_indicator,omitempty" yaml:"logged_out_indicator" mapstructure:"logged_out_indicator"`
	Realm              string `json:"realm,omitempty" yaml:"realm" mapstructure:"realm"`

	// API key. HeaderValue is written into a generated script and must not
	// contain double quotes, backslashes or line breaks.
	HeaderName  string `json:"header_name,omitempty" yaml:"header_name" mapstructure:"header_name"`
	HeaderValue string `json:"header_value,omitempty" yaml:"header_value" mapstructure:"header_value"`

	// JWT bearer token; same quoting constraint as HeaderValue.
	Token string `json:"token,omitempty" yaml:"token" mapstructure:"token"`

	// Client certificate.
	CertificatePath     string `json:"certificate_path,omitempty" yaml:"certificate_path" mapstructure:"certificate_path"`
	CertificatePassword string `json:"certificate_password,omitempty" yaml:"certificate_password" mapstructure:"certificate_password"`
	CertificateType     string `json:"certificate_type,omitempty" yaml:"certificate_type" mapstructure:"certificate_type"`

	// OAuth2 client credentials.
	ClientID         string `json:"client_id,omitempty" yaml:"client_id" mapstructure:"client_id"`
	ClientSecret     string `json:"client_secret,omitempty" yaml:"client_secret" mapstructure:"client_secret"`
	TokenURL         string `json:"token_url,omitempty" yaml:"token_url" mapstructure:"token_url"`
	AuthorizationURL string `json:"authorization_url,omitempty" yaml:"authorization_url" mapstructure:"authorization_url"`
	Scope            string `json:"scope,omitempty" yaml:"scope" mapstructure:"scope"`
	RedirectURI      string `json:"redirect_uri,omitempty" yaml:"redirect_uri" mapstructure:"redirect_uri"`

	// Caller-supplied script.
	ScriptPath   string `json:"script_path,omitempty" yaml:"script_path" mapstructure:"script_path"`
	ScriptEngine string `json:"script_engine,omitempty" yaml:"script_engine" mapstructure:"script_engine"`

	// Params are extra method parameters forwarded to the engine.
	Params map[string]string `json:"params,omitempty" yaml:"params" mapstructure:"params"`
}

// Validate checks that every field required by c.Type is present.
func (c Config) Validate() error {
	switch c.Type {
	case FormBased, JSONBased:
		if err := requireFields(
			field{"login_url", c.LoginURL},
			field{"username", c.Username},
			field{"password", c.Password},
		); err != nil {
			return err
		}
		if c.LoginRequestData == "" {
			if err := requireFields(field{"username_field", c.UsernameField}, field{"password_field", c.PasswordField}); err != nil {
				return err
			}
		}
		return validURL("login_url", c.LoginURL)
	case HTTPBasic, HTTPDigest:
		if err := requireFields(
			field{"login_url", c.LoginURL},
			field{"username", c.Username},
			field{"password", c.Password},
		); err != nil {
			return err
		}
		return validURL("login_url", c.LoginURL)
	case APIKey:
		if err := requireFields(field{"header_name", c.HeaderName}, field{"header_value", c.HeaderValue}); err != nil {
			return err
		}
		return scriptSafe(field{"header_name", c.HeaderName}, field{"header_value", c.HeaderValue})
	case JWT:
		if err := requireFields(field{"token", c.Token}); err != nil {
			return err
		}
		return scriptSafe(field{"token", c.Token})
	case Certificate:
		if err := requireFields(field{"certificate_path", c.CertificatePath}); err != nil {
			return err
		}
		if t := c.certificateType(); t != DefaultCertificateType {
			return scanerr.Configf("certificate_type", "unsupported certificate type %q (only %s)", t, DefaultCertificateType)
		}
		if _, err := os.Stat(c.CertificatePath); err != nil {
			return scanerr.Configf("certificate_path", "cannot read certificate: %v", err)
		}
		return nil
	case OAuth2:
		if err := requireFields(
			field{"client_id", c.ClientID},
			field{"client_secret", c.ClientSecret},
			field{"token_url", c.TokenURL},
		); err != nil {
			return err
		}
		if err := validURL("token_url", c.TokenURL); err != nil {
			return err
		}
		return scriptSafe(field{"token_url", c.TokenURL}, field{"scope", c.Scope}, field{"redirect_uri", c.RedirectURI})
	case ScriptBased:
		if err := requireFields(field{"script_path", c.ScriptPath}); err != nil {
			return err
		}
		if _, err := os.Stat(c.ScriptPath); err != nil {
			return scanerr.Configf("script_path", "cannot read script: %v", err)
		}
		return nil
	case "":
		return scanerr.Configf("auth.type", "authentication type is required")
	default:
		return scanerr.Configf("auth.type", "unknown authentication type %q", c.Type)
	}
}

func (c Config) certificateType() string {
	if c.CertificateType == "" {
		return DefaultCertificateType
	}
	return strings.ToUpper(c.CertificateType)
}

type field struct {
	name  string
	value string
}

func requireFields(fields ...field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return scanerr.Configf(f.name, "required for this authentication type")
		}
	}
	return nil
}

// scriptUnsafe holds the characters that end or escape a script string
// literal, including the line separators the script engine treats as
// newlines.
const scriptUnsafe = "\"\\\r\n\u2028\u2029"

func scriptSafe(fields ...field) error {
	for _, f := range fields {
		if strings.ContainsAny(f.value, scriptUnsafe) {
			return scanerr.Configf(f.name, "must not contain double quotes, backslashes or line breaks")
		}
	}
	return nil
}

func validURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return scanerr.Configf(name, "%q is not an absolute http(s) URL", raw)
	}
	return nil
}

// String masks secrets so configs can be logged.
func (c Config) String() string {
	return fmt.Sprintf("auth{type=%s login_url=%s user=%s header=%s client_id=%s cert=%s}",
		c.Type, c.LoginURL, c.Username, c.HeaderName, c.ClientID, c.CertificatePath)
}
