package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/teemow/meetsync/internal/config"
	"github.com/teemow/meetsync/internal/server"
	"github.com/teemow/meetsync/internal/tools/scheduling_tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for every MCP tool. The tools are
registered on an in-memory engine and rendered from their definitions.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(cmd.OutOrStdout(), outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// toolCategory groups tools in the reference, in the order listed.
type toolCategory struct {
	title string
	match func(name string) bool
}

var toolCategories = []toolCategory{
	{"Slot Tools", func(n string) bool {
		return strings.HasSuffix(n, "_slots") || n == "book_meeting"
	}},
	{"Meeting Tools", func(n string) bool {
		return n != "book_meeting" && (strings.Contains(n, "meeting") || strings.Contains(n, "managers") ||
			n == "mark_no_show" || n == "export_ics")
	}},
	{"Availability Tools", func(n string) bool {
		return strings.Contains(n, "availability") || strings.Contains(n, "blocked")
	}},
}

const otherCategory = "Other"

func getCategoryFromToolName(name string) string {
	for _, c := range toolCategories {
		if c.match(name) {
			return c.title
		}
	}
	return otherCategory
}

func runGenerateDocs(w io.Writer, outputFile string) error {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Store = config.StoreMemory
	cfg.Google.TokenStore = config.TokenStoreMemory

	a, err := newApp(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	if err != nil {
		return fmt.Errorf("failed to create scheduling engine: %w", err)
	}
	defer func() { _ = a.Close() }()

	serverContext := server.NewServerContext(ctx, a.manager, nil)
	defer func() { _ = serverContext.Shutdown() }()

	mcpSrv := mcpserver.NewMCPServer("meetsync", version, mcpserver.WithToolCapabilities(true))
	if err := scheduling_tools.RegisterSchedulingTools(mcpSrv, serverContext, false); err != nil {
		return fmt.Errorf("failed to register scheduling tools: %w", err)
	}

	tools := make([]mcp.Tool, 0)
	for _, st := range mcpSrv.ListTools() {
		tools = append(tools, st.Tool)
	}
	markdown := generateToolsMarkdown(tools)

	if outputFile == "" {
		_, err := io.WriteString(w, markdown)
		return err
	}
	if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	return nil
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	grouped := make(map[string][]mcp.Tool)
	for _, t := range tools {
		cat := getCategoryFromToolName(t.Name)
		grouped[cat] = append(grouped[cat], t)
	}

	titles := make([]string, 0, len(toolCategories)+1)
	for _, c := range toolCategories {
		if len(grouped[c.title]) > 0 {
			titles = append(titles, c.title)
		}
	}
	if len(grouped[otherCategory]) > 0 {
		titles = append(titles, otherCategory)
	}

	var sb strings.Builder
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("Tools served by `meetsync serve`. This file is generated by `meetsync generate-docs`.\n\n")

	sb.WriteString("## Table of Contents\n\n")
	for _, title := range titles {
		fmt.Fprintf(&sb, "- [%s](#%s) (%d)\n", title, strings.ToLower(strings.ReplaceAll(title, " ", "-")), len(grouped[title]))
	}
	sb.WriteString("\n")

	sb.WriteString("## Times and Participants\n\n")
	sb.WriteString("- **Times:** `start` and `end` arguments accept RFC 3339 or `YYYY-MM-DD HH:MM` in the configured timezone\n")
	sb.WriteString("- **Participants:** `manager_id` and `owner_id` are participant IDs as shown by `meetsync participant list`\n")
	sb.WriteString("- **Read-only mode:** with `serve --read-only` only tools that do not book, cancel or change availability are registered\n\n")

	for _, title := range titles {
		list := grouped[title]
		slices.SortFunc(list, func(a, b mcp.Tool) int { return strings.Compare(a.Name, b.Name) })

		fmt.Fprintf(&sb, "## %s\n\n", title)
		for _, t := range list {
			sb.WriteString(generateToolMarkdown(t))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}

	props := tool.InputSchema.Properties
	if len(props) == 0 {
		return sb.String()
	}

	sb.WriteString("**Arguments:**\n")
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		presence := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			presence = "required"
		}

		desc, _ := prop["description"].(string)
		if desc == "" {
			typ, _ := prop["type"].(string)
			if typ == "" {
				typ = "any"
			}
			desc = typ + " parameter"
		}
		fmt.Fprintf(&sb, "- `%s` (%s): %s\n", name, presence, desc)
	}
	sb.WriteString("\n")
	return sb.String()
}
