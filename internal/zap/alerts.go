package zap

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/buemura/zapscan/pkg/scanerr"
	"github.com/buemura/zapscan/pkg/types"
)

// rawAlert mirrors one entry of core/view/alerts.
type rawAlert struct {
	ID          string `json:"id"`
	PluginID    string `json:"pluginId"`
	AlertRef    string `json:"alertRef"`
	Alert       string `json:"alert"`
	Name        string `json:"name"`
	Risk        string `json:"risk"`
	Confidence  string `json:"confidence"`
	Description string `json:"description"`
	CWEID       string `json:"cweid"`
	Solution    string `json:"solution"`
	Reference   string `json:"reference"`
	URL         string `json:"url"`
	Method      string `json:"method"`
	Param       string `json:"param"`
	Attack      string `json:"attack"`
	InputVector string `json:"inputVector"`
	Evidence    string `json:"evidence"`
	Other       string `json:"other"`
}

// Alerts returns up to count alerts for baseURL starting at offset start.
func (c *Client) Alerts(ctx context.Context, baseURL string, start, count int) ([]types.Alert, error) {
	params := url.Values{
		"baseurl": {baseURL},
		"start":   {strconv.Itoa(start)},
		"count":   {strconv.Itoa(count)},
	}
	body, err := c.view(ctx, "core", "alerts", params)
	if err != nil {
		return nil, err
	}
	raw, ok := body["alerts"]
	if !ok {
		return nil, &scanerr.ExternalServiceError{
			Endpoint:   c.endpoint("view", "core", "alerts"),
			StatusCode: http.StatusOK,
			Err:        fmt.Errorf("response has no \"alerts\" field"),
		}
	}
	return ParseAlerts(raw)
}

// ParseAlerts converts a raw alerts array into Alert records.
func ParseAlerts(data []byte) ([]types.Alert, error) {
	var raws []rawAlert
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, &scanerr.ExternalServiceError{
			Endpoint:   "core/view/alerts",
			StatusCode: http.StatusOK,
			Err:        fmt.Errorf("malformed alerts payload: %w", err),
		}
	}

	alerts := make([]types.Alert, 0, len(raws))
	for _, r := range raws {
		alerts = append(alerts, r.toAlert())
	}
	return alerts, nil
}

func (r rawAlert) toAlert() types.Alert {
	name := r.Name
	if name == "" {
		name = r.Alert
	}

	sev, err := types.ParseSeverity(r.Risk)
	if err != nil {
		sev = types.SeverityInformational
	}

	cwe, err := strconv.Atoi(strings.TrimSpace(r.CWEID))
	if err != nil || cwe < 0 {
		cwe = 0
	}

	a := types.Alert{
		ID:          r.ID,
		PluginID:    r.PluginID,
		Name:        name,
		Severity:    sev,
		Description: r.Description,
		CWEID:       cwe,
		Solution:    r.Solution,
		Reference:   r.Reference,
		Confirmed:   strings.EqualFold(r.Confidence, "Confirmed"),
	}
	if r.URL != "" {
		a.URLs = []string{r.URL}
	}
	a.Params = nonEmpty(map[string]string{
		"name":         r.Param,
		"method":       r.Method,
		"attack":       r.Attack,
		"input_vector": r.InputVector,
	})
	a.Evidence = nonEmpty(map[string]string{
		"evidence": r.Evidence,
		"other":    r.Other,
	})
	return a
}

func nonEmpty(m map[string]string) map[string]string {
	for k, v := range m {
		if v == "" {
			delete(m, k)
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
