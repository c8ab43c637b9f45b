package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/harvester/harvest"
	"github.com/use-agent/harvester/output"
)

// locator mirrors the Harvester API locator model.
type locator struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// locatorsResponse mirrors the Harvester locators API response.
type locatorsResponse struct {
	Success  bool      `json:"success"`
	Locators []locator `json:"locators"`
	Total    int       `json:"total"`
	Error    *apiError `json:"error"`
}

// harvestReport mirrors the report part of a harvest response.
type harvestReport struct {
	Requested int `json:"requested"`
	Harvested int `json:"harvested"`
	Failed    []struct {
		Locator locator `json:"locator"`
		Message string  `json:"message"`
	} `json:"failed"`
	SkippedRows   int  `json:"skipped_rows"`
	MissingTables int  `json:"missing_tables"`
	Aborted       bool `json:"aborted"`
}

// harvestResponse mirrors the Harvester harvest API response (format=json).
type harvestResponse struct {
	Success bool           `json:"success"`
	Schema  []string       `json:"schema"`
	Rows    [][]string     `json:"rows"`
	Report  *harvestReport `json:"report"`
	Error   *apiError      `json:"error"`
}

func main() {
	apiURL := os.Getenv("HARVESTER_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("HARVESTER_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "HARVESTER_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"harvester",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	listLocatorsTool := mcp.NewTool("list_locators",
		mcp.WithDescription("List the pages an index page (for example a Wikipedia category) links to, without visiting them."),
		mcp.WithString("index_url",
			mcp.Required(),
			mcp.Description("The URL of the index page"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of locators to return (default: all)"),
		),
	)
	s.AddTool(listLocatorsTool, handleListLocators(apiURL, apiKey))

	harvestIndexTool := mcp.NewTool("harvest_index",
		mcp.WithDescription("Visit every page linked from an index page, read its info table and return all records as one table. Pages are fetched one at a time with a pause between them, so large indexes take a while."),
		mcp.WithString("index_url",
			mcp.Required(),
			mcp.Description("The URL of the index page"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of pages to harvest (default: server setting)"),
		),
		mcp.WithString("format",
			mcp.Description("Table rendering: 'markdown' (default) or 'csv'"),
			mcp.Enum("markdown", "csv"),
		),
	)
	s.AddTool(harvestIndexTool, handleHarvestIndex(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the Harvester API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func errorText(fallback string, e *apiError) string {
	if e == nil {
		return fallback
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func handleListLocators(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		indexURL, err := request.RequireString("index_url")
		if err != nil {
			return mcp.NewToolResultError("index_url is required"), nil
		}

		payload := map[string]any{"index_url": indexURL}
		if limit := request.GetInt("limit", 0); limit > 0 {
			payload["limit"] = limit
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/locators", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("locators request failed: %v", err)), nil
		}

		var resp locatorsResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse locators response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText("listing locators failed", resp.Error)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Found %d pages:\n\n", resp.Total)
		for _, loc := range resp.Locators {
			fmt.Fprintf(&sb, "%s\t%s\n", loc.Title, loc.URL)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleHarvestIndex(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Minute}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		indexURL, err := request.RequireString("index_url")
		if err != nil {
			return mcp.NewToolResultError("index_url is required"), nil
		}

		payload := map[string]any{"index_url": indexURL, "format": "json"}
		if limit := request.GetInt("limit", 0); limit > 0 {
			payload["limit"] = limit
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/harvest", payload)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("harvest request failed: %v", err)), nil
		}

		var resp harvestResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse harvest response: %v", err)), nil
		}
		if !resp.Success && len(resp.Rows) == 0 {
			return mcp.NewToolResultError(errorText("harvest failed", resp.Error)), nil
		}

		format, err := output.ParseFormat(request.GetString("format", "markdown"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var sb strings.Builder
		if err := output.Write(&sb, format, harvest.Table{Schema: resp.Schema, Rows: resp.Rows}, output.Options{}); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to render table: %v", err)), nil
		}

		if r := resp.Report; r != nil {
			fmt.Fprintf(&sb, "\n---\nHarvested %d of %d pages (%d rows skipped, %d pages without a table)\n",
				r.Harvested, r.Requested, r.SkippedRows, r.MissingTables)
			for _, f := range r.Failed {
				fmt.Fprintf(&sb, "FAILED %s: %s\n", f.Locator.URL, f.Message)
			}
			if r.Aborted {
				sb.WriteString("Harvest stopped early: " + errorText("aborted", resp.Error) + "\n")
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}
