package remediation

const (
	owaspCheatSheets = "https://cheatsheetseries.owasp.org/cheatsheets/"
	mdnHeaders       = "https://developer.mozilla.org/en-US/docs/Web/HTTP/Headers/"
)

func builtinTemplates() []Template {
	return []Template{
		{
			Key:         "Cross Site Scripting",
			Title:       "Encode untrusted output and restrict script execution",
			Description: "User-controlled data is written into a page without encoding, letting an attacker run script in other users' browsers.",
			Steps: []string{
				"Identify every sink where request data reaches HTML, attributes, JavaScript or URLs.",
				"Apply context-aware output encoding at each sink; prefer the template engine's auto-escaping.",
				"Validate input against an allow-list of expected formats.",
				"Deploy a Content-Security-Policy that forbids inline script.",
				"Set the HttpOnly flag on session cookies to limit the impact of any remaining injection.",
			},
			CodeExamples: []CodeExample{
				{Language: "go", Description: "html/template escapes by context", Code: "tmpl := template.Must(template.New(\"p\").Parse(`<p>{{.Name}}</p>`))\ntmpl.Execute(w, data)"},
				{Language: "javascript", Description: "Use textContent instead of innerHTML", Code: "element.textContent = userInput;"},
			},
			References: []string{
				owaspCheatSheets + "Cross_Site_Scripting_Prevention_Cheat_Sheet.html",
				"https://cwe.mitre.org/data/definitions/79.html",
			},
			Difficulty:       DifficultyModerate,
			EstimatedMinutes: 90,
		},
		{
			Key:         "SQL Injection",
			Title:       "Use parameterized queries",
			Description: "Request data is concatenated into SQL statements, allowing an attacker to read or modify the database.",
			Steps: []string{
				"Replace string-built SQL with parameterized queries or prepared statements.",
				"Review ORM usage for raw query helpers that accept interpolated strings.",
				"Run the application with a least-privilege database account.",
				"Validate identifiers such as sort columns against an allow-list.",
			},
			CodeExamples: []CodeExample{
				{Language: "go", Code: "row := db.QueryRowContext(ctx, \"SELECT name FROM users WHERE id = $1\", id)"},
				{Language: "python", Code: "cursor.execute(\"SELECT name FROM users WHERE id = %s\", (user_id,))"},
			},
			References: []string{
				owaspCheatSheets + "SQL_Injection_Prevention_Cheat_Sheet.html",
				"https://cwe.mitre.org/data/definitions/89.html",
			},
			Difficulty:       DifficultyModerate,
			EstimatedMinutes: 120,
		},
		{
			Key:         "Path Traversal",
			Title:       "Resolve file paths against a fixed base directory",
			Description: "File names taken from requests can escape the intended directory and expose arbitrary files.",
			Steps: []string{
				"Map user input to an identifier instead of a file name where possible.",
				"Clean the path and verify it stays within the base directory after resolution.",
				"Reject input containing path separators or traversal sequences.",
				"Run the service with file system permissions limited to the served directory.",
			},
			CodeExamples: []CodeExample{
				{Language: "go", Code: "root, err := os.OpenRoot(baseDir)\nif err != nil {\n\treturn err\n}\nf, err := root.Open(name) // fails if name escapes baseDir"},
			},
			References: []string{
				"https://owasp.org/www-community/attacks/Path_Traversal",
				"https://cwe.mitre.org/data/definitions/22.html",
			},
			Difficulty:       DifficultyModerate,
			EstimatedMinutes: 60,
		},
		{
			Key:         "Remote OS Command Injection",
			Title:       "Stop passing request data to a shell",
			Description: "Request data reaches an operating system command, letting an attacker run arbitrary commands on the server.",
			Steps: []string{
				"Replace shell invocations with library calls that do the same work.",
				"If a process must be started, pass arguments as a list and never through a shell.",
				"Validate arguments against a strict allow-list.",
				"Run the process as an unprivileged user inside a restricted environment.",
			},
			CodeExamples: []CodeExample{
				{Language: "go", Code: "cmd := exec.CommandContext(ctx, \"convert\", inputPath, outputPath) // no shell"},
			},
			References: []string{
				owaspCheatSheets + "OS_Command_Injection_Defense_Cheat_Sheet.html",
				"https://cwe.mitre.org/data/definitions/78.html",
			},
			Difficulty:       DifficultyComplex,
			EstimatedMinutes: 180,
		},
		{
			Key:         "Absence of Anti-CSRF Tokens",
			Title:       "Protect state-changing requests against CSRF",
			Description: "Forms submit state-changing requests without a token, so another site can submit them on a user's behalf.",
			Steps: []string{
				"Enable the framework's CSRF protection middleware.",
				"Include a per-session token in every state-changing form and verify it server side.",
				"Set SameSite=Lax or Strict on session cookies.",
			},
			CodeExamples: []CodeExample{
				{Language: "go", Code: "protect := http.NewCrossOriginProtection()\nhandler = protect.Handler(mux)"},
			},
			References: []string{
				owaspCheatSheets + "Cross-Site_Request_Forgery_Prevention_Cheat_Sheet.html",
				"https://cwe.mitre.org/data/definitions/352.html",
			},
			Difficulty:       DifficultyModerate,
			EstimatedMinutes: 60,
		},
		{
			Key:         "Content Security Policy (CSP) Header Not Set",
			Title:       "Add a Content-Security-Policy header",
			Description: "Responses carry no Content-Security-Policy, so the browser cannot limit where scripts and other resources load from.",
			Steps: []string{
				"Start with a report-only policy to inventory resource origins.",
				"Define a policy restricting default-src, script-src and object-src.",
				"Enforce the policy once violation reports are resolved.",
			},
			CodeExamples: []CodeExample{
				{Language: "nginx", Code: "add_header Content-Security-Policy \"default-src 'self'; object-src 'none'\" always;"},
			},
			References: []string{
				mdnHeaders + "Content-Security-Policy",
				owaspCheatSheets + "Content_Security_Policy_Cheat_Sheet.html",
			},
			Difficulty:       DifficultyModerate,
			EstimatedMinutes: 60,
			AutomatedFix:     "add_header Content-Security-Policy \"default-src 'self'\" always;",
		},
		{
			Key:         "Missing Anti-clickjacking Header",
			Title:       "Prevent the site from being framed",
			Description: "Pages can be embedded in frames on other sites, enabling clickjacking.",
			Steps: []string{
				"Send Content-Security-Policy: frame-ancestors 'self' on HTML responses.",
				"Send X-Frame-Options: DENY or SAMEORIGIN for older browsers.",
			},
			References:       []string{mdnHeaders + "X-Frame-Options"},
			Difficulty:       DifficultyEasy,
			EstimatedMinutes: 15,
			AutomatedFix:     "add_header X-Frame-Options \"SAMEORIGIN\" always;",
		},
		{
			Key:         "Strict-Transport-Security Header Not Set",
			Title:       "Enable HTTP Strict Transport Security",
			Description: "HTTPS responses do not set Strict-Transport-Security, leaving users open to protocol downgrade.",
			Steps: []string{
				"Send Strict-Transport-Security with a max-age of at least one year on HTTPS responses.",
				"Add includeSubDomains once every subdomain serves HTTPS.",
			},
			References:       []string{mdnHeaders + "Strict-Transport-Security"},
			Difficulty:       DifficultyEasy,
			EstimatedMinutes: 15,
			AutomatedFix:     "add_header Strict-Transport-Security \"max-age=31536000; includeSubDomains\" always;",
		},
		{
			Key:         "X-Content-Type-Options Header Missing",
			Title:       "Disable MIME sniffing",
			Description: "Without X-Content-Type-Options: nosniff, browsers may interpret responses as a different content type.",
			Steps: []string{
				"Send X-Content-Type-Options: nosniff on all responses.",
				"Make sure every response declares an accurate Content-Type.",
			},
			References:       []string{mdnHeaders + "X-Content-Type-Options"},
			Difficulty:       DifficultyEasy,
			EstimatedMinutes: 10,
			AutomatedFix:     "add_header X-Content-Type-Options \"nosniff\" always;",
		},
		{
			Key:         "Cookie No HttpOnly Flag",
			Title:       "Set HttpOnly on cookies",
			Description: "Cookies are readable from JavaScript, so a script injection can steal them.",
			Steps: []string{
				"Set the HttpOnly attribute on session and authentication cookies.",
				"Review client code that reads these cookies and move that logic server side.",
			},
			CodeExamples: []CodeExample{
				{Language: "go", Code: "http.SetCookie(w, &http.Cookie{Name: \"session\", Value: id, HttpOnly: true, Secure: true, SameSite: http.SameSiteLaxMode})"},
			},
			References:       []string{owaspCheatSheets + "Session_Management_Cheat_Sheet.html"},
			Difficulty:       DifficultyEasy,
			EstimatedMinutes: 15,
		},
		{
			Key:         "Cookie Without Secure Flag",
			Title:       "Set Secure on cookies",
			Description: "Cookies may be sent over unencrypted connections.",
			Steps: []string{
				"Set the Secure attribute on every cookie issued over HTTPS.",
				"Redirect all HTTP traffic to HTTPS.",
			},
			References:       []string{owaspCheatSheets + "Session_Management_Cheat_Sheet.html"},
			Difficulty:       DifficultyEasy,
			EstimatedMinutes: 15,
		},
		{
			Key:         "Information Disclosure",
			Title:       "Remove sensitive details from responses",
			Description: "Responses reveal internal details such as stack traces, debug output or comments that help an attacker.",
			Steps: []string{
				"Disable debug mode and verbose error pages in production.",
				"Return generic error messages and log details server side.",
				"Strip comments and internal identifiers from delivered assets.",
			},
			References:       []string{owaspCheatSheets + "Error_Handling_Cheat_Sheet.html"},
			Difficulty:       DifficultyEasy,
			EstimatedMinutes: 30,
		},
		{
			Key:         "XML External Entity Attack",
			Title:       "Disable external entities in XML parsers",
			Description: "XML input is parsed with external entity resolution enabled, exposing local files and internal services.",
			Steps: []string{
				"Disable DTD processing and external entity resolution in every XML parser.",
				"Prefer JSON for new interfaces.",
				"Update XML libraries to versions with safe defaults.",
			},
			References: []string{
				owaspCheatSheets + "XML_External_Entity_Prevention_Cheat_Sheet.html",
				"https://cwe.mitre.org/data/definitions/611.html",
			},
			Difficulty:       DifficultyModerate,
			EstimatedMinutes: 60,
		},
		{
			Key:         "Server Side Request Forgery",
			Title:       "Restrict server-side requests to known destinations",
			Description: "The server fetches URLs supplied by the client, so an attacker can reach internal services.",
			Steps: []string{
				"Allow-list the hosts and schemes the server may fetch.",
				"Resolve host names and reject private, loopback and link-local addresses.",
				"Disable redirects or re-validate each redirect target.",
				"Isolate the fetching component from internal networks.",
			},
			References: []string{
				owaspCheatSheets + "Server_Side_Request_Forgery_Prevention_Cheat_Sheet.html",
				"https://cwe.mitre.org/data/definitions/918.html",
			},
			Difficulty:       DifficultyComplex,
			EstimatedMinutes: 150,
		},
		{
			Key:         "External Redirect",
			Title:       "Validate redirect targets",
			Description: "Redirect destinations come from request parameters, enabling phishing through the trusted domain.",
			Steps: []string{
				"Redirect only to relative paths or to an allow-list of hosts.",
				"Use indirect identifiers that map to destinations on the server.",
			},
			References: []string{
				owaspCheatSheets + "Unvalidated_Redirects_and_Forwards_Cheat_Sheet.html",
				"https://cwe.mitre.org/data/definitions/601.html",
			},
			Difficulty:       DifficultyEasy,
			EstimatedMinutes: 30,
		},
		{
			Key:         "Vulnerable JS Library",
			Title:       "Upgrade vulnerable JavaScript libraries",
			Description: "A front-end library with known vulnerabilities is served to clients.",
			Steps: []string{
				"Identify the library and version from the finding evidence.",
				"Upgrade to a release that fixes the listed advisories.",
				"Add dependency scanning to the build to catch regressions.",
			},
			References:       []string{"https://owasp.org/Top10/A06_2021-Vulnerable_and_Outdated_Components/"},
			Difficulty:       DifficultyEasy,
			EstimatedMinutes: 45,
			AutomatedFix:     "npm audit fix",
		},
	}
}
