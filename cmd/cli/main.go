package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

type outcome struct {
	Success    bool   `json:"success"`
	StatusCode *int   `json:"statusCode"`
	Duration   *int64 `json:"duration"`
	Error      string `json:"error"`
}

type status struct {
	Status     string `json:"status"`
	LastRun    any    `json:"lastRun"`
	LastStatus string `json:"lastStatus"`
	NextRun    any    `json:"nextRun"`
	Results    []struct {
		URL     string   `json:"url"`
		HTTP    *outcome `json:"http"`
		Browser *outcome `json:"browser"`
	} `json:"results"`
}

func main() {
	api := strings.TrimRight(os.Getenv("API_BASE"), "/")
	if api == "" {
		api = "http://localhost:3000"
	}
	client := &http.Client{Timeout: 10 * time.Second}

	cmd := "status"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "status":
		if err := printStatus(client, api); err != nil {
			fmt.Println("Error contacting API:", err)
			os.Exit(1)
		}
	case "trigger":
		resp, err := client.Post(api+"/ping-now", "text/plain", nil)
		if err != nil {
			fmt.Println("Error contacting API:", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			fmt.Println(strings.TrimSpace(string(body)))
		} else {
			fmt.Println("API returned status:", resp.Status)
			os.Exit(1)
		}
	default:
		fmt.Println("Usage: keeper-cli [status|trigger]  (API_BASE defaults to http://localhost:3000)")
		os.Exit(2)
	}
}

func printStatus(client *http.Client, api string) error {
	resp, err := client.Get(api + "/")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %s", resp.Status)
	}
	var st status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	fmt.Printf("Status:      %s\n", st.Status)
	fmt.Printf("Last run:    %v\n", orDash(st.LastRun))
	fmt.Printf("Next run:    %v\n", orDash(st.NextRun))
	fmt.Printf("Last result: %s\n", st.LastStatus)
	for _, r := range st.Results {
		fmt.Printf("  %s\n", r.URL)
		if r.HTTP != nil {
			fmt.Printf("    HTTP:    %s\n", describe(r.HTTP))
		}
		if r.Browser != nil {
			fmt.Printf("    Browser: %s\n", describe(r.Browser))
		}
	}
	return nil
}

func describe(o *outcome) string {
	code := "N/A"
	if o.StatusCode != nil {
		code = fmt.Sprint(*o.StatusCode)
	}
	if o.Success {
		if o.Duration != nil {
			return fmt.Sprintf("ok (%s, %dms)", code, *o.Duration)
		}
		return "ok (" + code + ")"
	}
	return fmt.Sprintf("FAIL (%s) %s", code, o.Error)
}

func orDash(v any) any {
	if v == nil {
		return "-"
	}
	return v
}
