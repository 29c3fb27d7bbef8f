package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/recera/pivot/internal/cache"
	"github.com/recera/pivot/internal/config"
	"github.com/recera/pivot/pkg/chart"
	"github.com/recera/pivot/pkg/query"
)

func defaultViews(t *testing.T) []chart.View {
	t.Helper()
	views, err := config.DefaultConfig().ChartViews()
	if err != nil {
		t.Fatalf("ChartViews failed: %v", err)
	}
	return views
}

func sampleExecutor(t *testing.T) *query.SQLExecutor {
	t.Helper()
	exec, err := query.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory failed: %v", err)
	}
	t.Cleanup(func() { exec.Close() })
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := exec.CreateSample(context.Background(), start, 2, 1); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	return exec
}

func TestFindView(t *testing.T) {
	views := defaultViews(t)

	v, err := findView(views, strings.ToUpper(views[1].Name))
	if err != nil {
		t.Fatalf("Expected view to be found, got %v", err)
	}
	if v.Name != views[1].Name {
		t.Errorf("Expected %q, got %q", views[1].Name, v.Name)
	}

	_, err = findView(views, "nope")
	if err == nil {
		t.Fatal("Expected error for unknown view")
	}
	if !strings.Contains(err.Error(), views[0].Name) {
		t.Errorf("Expected error to list view names, got %q", err.Error())
	}
}

func TestPrintDataset(t *testing.T) {
	exec := sampleExecutor(t)
	views := defaultViews(t)

	for _, v := range views {
		t.Run(v.Name, func(t *testing.T) {
			ds, err := exec.Execute(context.Background(), v.Query)
			if err != nil {
				t.Fatalf("Execute failed: %v", err)
			}
			var buf bytes.Buffer
			if err := printDataset(&buf, v, ds); err != nil {
				t.Fatalf("printDataset failed: %v", err)
			}
			out := buf.String()
			for _, m := range v.Options.Measures {
				if !strings.Contains(out, m) {
					t.Errorf("Expected header %q in output:\n%s", m, out)
				}
			}
			if !strings.HasSuffix(out, " rows\n") {
				t.Errorf("Expected row count at the end, got:\n%s", out)
			}
		})
	}
}

func TestRouter_Views(t *testing.T) {
	views := defaultViews(t)
	results := cache.New(sampleExecutor(t), cache.DefaultConfig())
	liveServer := newLiveServer(views, results, false)
	ts := httptest.NewServer(newRouter(liveServer, views, results, []string{"http://localhost:3000"}, false))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/views")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var infos []viewInfo
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(infos) != len(views) {
		t.Fatalf("Expected %d views, got %d", len(views), len(infos))
	}
	for i, info := range infos {
		if info.Index != i || info.Name != views[i].Name {
			t.Errorf("Expected view %d %q, got %d %q", i, views[i].Name, info.Index, info.Name)
		}
	}

	resp, err = http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/cache")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()
	var stats cache.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if stats.Hits != 0 || stats.EntryCount != 0 {
		t.Errorf("Expected an untouched cache, got %+v", stats)
	}
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)

	run := func(args ...string) (string, error) {
		cmd := newRootCommand()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	out, err := run("init", "--days", "1")
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if !strings.Contains(out, "Wrote "+config.FileName) {
		t.Errorf("Expected config to be written, got %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, config.DefaultConfig().Database)); err != nil {
		t.Errorf("Expected sample database, got %v", err)
	}

	if _, err := run("init"); err == nil {
		t.Error("Expected second init to refuse overwriting")
	}
	if _, err := run("init", "--force", "--days", "1"); err != nil {
		t.Errorf("Expected --force to overwrite, got %v", err)
	}

	out, err = run("query", defaultViews(t)[0].Name)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !strings.Contains(out, "rows") {
		t.Errorf("Expected a table, got %q", out)
	}
}
