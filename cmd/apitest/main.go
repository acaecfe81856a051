// Command apitest runs smoke checks against a running feast calendar API.
//
// Usage:
//
//	go run ./cmd/apitest --url http://localhost:8080 --from 2024 --to 2026
//
// Every year in the range is fetched and checked for the calendar's
// structural rules (ten feasts in order, Sunday Wave Sheaf and Pentecost,
// contiguous Tabernacles and Last Great Day), followed by the API's error
// handling.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/zapponejosh/feast-calendar/internal/calendar"
	"github.com/zapponejosh/feast-calendar/internal/feasts"
)

// =============================================================================
// Response Types - Match the actual API response structure
// =============================================================================

type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

type ErrorInfo struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// YearResponse is the response for /api/v1/feasts/{year}
type YearResponse struct {
	feasts.Year
	Origin string `json:"origin"`
}

// HealthResponse is the response for /health
type HealthResponse struct {
	Status  string `json:"status"`
	Archive string `json:"archive"`
}

// =============================================================================
// Test Runner
// =============================================================================

type TestRunner struct {
	baseURL      string
	client       *http.Client
	out          io.Writer
	verbose      bool
	from, to     int
	successCount int
	errorCount   int
	errors       []string
}

func NewTestRunner(baseURL string, client *http.Client, out io.Writer, from, to int, verbose bool) *TestRunner {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TestRunner{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  client,
		out:     out,
		verbose: verbose,
		from:    from,
		to:      to,
	}
}

func (tr *TestRunner) Run() {
	fmt.Fprintln(tr.out, "==============================================")
	fmt.Fprintln(tr.out, "Feast Calendar API Smoke Test")
	fmt.Fprintln(tr.out, "==============================================")
	fmt.Fprintf(tr.out, "Base URL: %s\n", tr.baseURL)

	tr.testHealth()
	tr.testYears()
	tr.testArchive()
	tr.testSingleFeast()
	tr.testRange()
	tr.testEdgeCases()

	tr.printSummary()
}

// =============================================================================
// Test Groups
// =============================================================================

func (tr *TestRunner) testHealth() {
	tr.printSection("Health Check")

	var health HealthResponse
	if err := tr.getData("/health", &health); err != nil {
		tr.recordError("Health", err.Error())
		return
	}

	if health.Status == "healthy" {
		tr.recordSuccess(fmt.Sprintf("Health check passed (archive %s)", health.Archive))
	} else {
		tr.recordError("Health", fmt.Sprintf("Unexpected status: %s", health.Status))
	}
}

func (tr *TestRunner) testYears() {
	tr.printSection(fmt.Sprintf("Feast Rules %d-%d", tr.from, tr.to))

	for year := tr.from; year <= tr.to; year++ {
		var y YearResponse
		if err := tr.getData(fmt.Sprintf("/api/v1/feasts/%d", year), &y); err != nil {
			tr.recordError(fmt.Sprint(year), err.Error())
			continue
		}

		problems := checkYear(&y.Year)
		if len(problems) > 0 {
			for _, p := range problems {
				tr.recordError(fmt.Sprint(year), p)
			}
			continue
		}
		tr.recordSuccess(fmt.Sprintf("%d: Nisan 1 %s, Trumpets %s", year, y.Nisan1.Format(), y.Tishri1.Format()))

		if tr.verbose {
			for _, f := range y.Feasts {
				fmt.Fprintf(tr.out, "    %-38s %s\n", f.Name, calendar.FormatSpan(f.Date, f.EndDate))
			}
		}
	}
}

func (tr *TestRunner) testArchive() {
	tr.printSection("Archive")

	// testYears fetched tr.from already, so a healthy archive serves it.
	var y YearResponse
	if err := tr.getData(fmt.Sprintf("/api/v1/feasts/%d", tr.from), &y); err != nil {
		tr.recordError("Archive", err.Error())
		return
	}

	switch y.Origin {
	case "archive":
		tr.recordSuccess(fmt.Sprintf("%d served from archive", tr.from))
	case "computed":
		tr.recordSuccess(fmt.Sprintf("%d recomputed (archive disabled)", tr.from))
	default:
		tr.recordError("Archive", fmt.Sprintf("Unexpected origin %q", y.Origin))
	}
}

func (tr *TestRunner) testSingleFeast() {
	tr.printSection("Single Feast")

	var f struct {
		Year int `json:"year"`
		feasts.Feast
	}
	if err := tr.getData(fmt.Sprintf("/api/v1/feasts/%d/%s", tr.from, feasts.SlugPentecost), &f); err != nil {
		tr.recordError("Pentecost", err.Error())
		return
	}

	if f.Slug == feasts.SlugPentecost && f.Date.Weekday() == time.Sunday {
		tr.recordSuccess(fmt.Sprintf("Pentecost %d: %s", f.Year, f.Date.Format()))
	} else {
		tr.recordError("Pentecost", fmt.Sprintf("Unexpected feast %s on %s", f.Slug, f.Date.Format()))
	}

	tr.expectStatus("Unknown feast rejected", fmt.Sprintf("/api/v1/feasts/%d/christmas", tr.from), http.StatusNotFound)
}

func (tr *TestRunner) testRange() {
	tr.printSection("Range")

	var data struct {
		Years []YearResponse `json:"years"`
	}
	if err := tr.getData(fmt.Sprintf("/api/v1/feasts?from=%d&to=%d", tr.from, tr.to), &data); err != nil {
		tr.recordError("Range", err.Error())
		return
	}

	if want := tr.to - tr.from + 1; len(data.Years) == want {
		tr.recordSuccess(fmt.Sprintf("Range returned %d years", want))
	} else {
		tr.recordError("Range", fmt.Sprintf("Expected %d years, got %d", want, len(data.Years)))
	}

	tr.expectStatus("Inverted range rejected", fmt.Sprintf("/api/v1/feasts?from=%d&to=%d", tr.to+1, tr.from), http.StatusBadRequest)
	tr.expectStatus("Oversized range rejected", "/api/v1/feasts?from=1000&to=2999", http.StatusBadRequest)
}

func (tr *TestRunner) testEdgeCases() {
	tr.printSection("Edge Cases")

	tr.expectStatus("Non-numeric year rejected", "/api/v1/feasts/next-year", http.StatusBadRequest)
	tr.expectStatus("Year beyond ephemeris range rejected", "/api/v1/feasts/3001", http.StatusBadRequest)
	tr.expectStatus("Missing range bound rejected", fmt.Sprintf("/api/v1/feasts?from=%d", tr.from), http.StatusBadRequest)
}

// checkYear returns every structural rule the year breaks.
func checkYear(y *feasts.Year) []string {
	var problems []string
	fail := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if len(y.Feasts) != len(feasts.Order) {
		fail("Expected %d feasts, got %d", len(feasts.Order), len(y.Feasts))
		return problems
	}
	for i, slug := range feasts.Order {
		if y.Feasts[i].Slug != slug {
			fail("Feast %d is %s, expected %s", i, y.Feasts[i].Slug, slug)
		}
	}
	if len(problems) > 0 {
		return problems
	}

	feast := func(slug string) feasts.Feast {
		f, _ := y.Find(slug)
		return f
	}
	newYear := feast(feasts.SlugNewYear)
	passover := feast(feasts.SlugPassover)
	waveSheaf := feast(feasts.SlugWaveSheaf)
	pentecost := feast(feasts.SlugPentecost)
	trumpets := feast(feasts.SlugTrumpets)
	tabernacles := feast(feasts.SlugTabernacles)
	lastGreatDay := feast(feasts.SlugLastGreatDay)

	if d := newYear.Date.DaysUntil(passover.Date); d != 14 {
		fail("Passover is %d days after Nisan 1, expected 14", d)
	}
	if waveSheaf.Date.Weekday() != time.Sunday || pentecost.Date.Weekday() != time.Sunday {
		fail("Wave Sheaf (%s) and Pentecost (%s) must be Sundays", waveSheaf.Date.Weekday(), pentecost.Date.Weekday())
	}
	if d := waveSheaf.Date.DaysUntil(pentecost.Date); d != 49 {
		fail("Pentecost is %d days after Wave Sheaf, expected 49", d)
	}
	if tabernacles.EndDate == nil || !tabernacles.EndDate.AddDays(1).Equal(lastGreatDay.Date) {
		fail("Last Great Day must follow Tabernacles")
	}
	if !trumpets.Date.Equal(y.Tishri1) {
		fail("Trumpets %s differs from Tishri 1 %s", trumpets.Date, y.Tishri1)
	}
	return problems
}

// =============================================================================
// Helper Methods
// =============================================================================

func (tr *TestRunner) getData(path string, target any) error {
	resp, err := tr.client.Get(tr.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read error: %w", err)
	}

	var apiResp APIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return fmt.Errorf("parse error: %w", err)
	}

	if !apiResp.Success {
		errMsg := "unknown error"
		if apiResp.Error != nil {
			errMsg = apiResp.Error.Message
		}
		return fmt.Errorf("API error (HTTP %d): %s", resp.StatusCode, errMsg)
	}

	return json.Unmarshal(apiResp.Data, target)
}

func (tr *TestRunner) expectStatus(name, path string, want int) {
	resp, err := tr.client.Get(tr.baseURL + path)
	if err != nil {
		tr.recordError(name, err.Error())
		return
	}
	resp.Body.Close()

	if resp.StatusCode == want {
		tr.recordSuccess(name)
	} else {
		tr.recordError(name, fmt.Sprintf("Expected HTTP %d, got %d", want, resp.StatusCode))
	}
}

func (tr *TestRunner) printSection(name string) {
	fmt.Fprintf(tr.out, "\n--- %s ---\n\n", name)
}

func (tr *TestRunner) recordSuccess(msg string) {
	tr.successCount++
	fmt.Fprintf(tr.out, "  ✓ %s\n", msg)
}

func (tr *TestRunner) recordError(context, msg string) {
	tr.errorCount++
	errStr := fmt.Sprintf("%s: %s", context, msg)
	tr.errors = append(tr.errors, errStr)
	fmt.Fprintf(tr.out, "  ✗ %s\n", errStr)
}

func (tr *TestRunner) printSummary() {
	fmt.Fprintln(tr.out)
	fmt.Fprintln(tr.out, "==============================================")
	fmt.Fprintln(tr.out, "Summary")
	fmt.Fprintln(tr.out, "==============================================")
	fmt.Fprintf(tr.out, "  Passed: %d\n", tr.successCount)
	fmt.Fprintf(tr.out, "  Failed: %d\n", tr.errorCount)
	fmt.Fprintln(tr.out)

	if tr.errorCount > 0 {
		fmt.Fprintln(tr.out, "Failures:")
		for _, err := range tr.errors {
			fmt.Fprintf(tr.out, "  • %s\n", err)
		}
		fmt.Fprintln(tr.out)
		fmt.Fprintf(tr.out, "Tests completed with %d failure(s)\n", tr.errorCount)
		return
	}
	fmt.Fprintln(tr.out, "All tests passed! ✓")
}

// =============================================================================
// Main
// =============================================================================

func main() {
	thisYear := time.Now().Year()

	flagSet := pflag.NewFlagSet("apitest", pflag.ExitOnError)
	baseURL := flagSet.String("url", "http://localhost:8080", "Base URL of the API")
	from := flagSet.Int("from", thisYear, "First year to check")
	to := flagSet.Int("to", thisYear+2, "Last year to check")
	verbose := flagSet.BoolP("verbose", "v", false, "Verbose output (show feast dates)")
	flagSet.Parse(os.Args[1:])

	// Check if server is reachable
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(*baseURL + "/health")
	if err != nil {
		fmt.Printf("Error: Cannot connect to %s\n", *baseURL)
		fmt.Println("Make sure the API server is running.")
		os.Exit(1)
	}
	resp.Body.Close()

	runner := NewTestRunner(*baseURL, nil, os.Stdout, *from, *to, *verbose)
	runner.Run()

	if runner.errorCount > 0 {
		os.Exit(1)
	}
}
