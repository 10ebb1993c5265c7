package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/meetslot/internal/availability"
	"github.com/teemow/meetslot/internal/calendar"
	"github.com/teemow/meetslot/internal/server"
	"github.com/teemow/meetslot/internal/tools/scheduling_tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command introspects the registered tools and outputs their documentation
in markdown format, ensuring the documentation is always accurate and in sync
with the actual tool implementations.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(cmd.OutOrStdout(), outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// listAllTools registers every tool, including write tools, against an offline
// engine and returns their definitions.
func listAllTools() ([]mcp.Tool, error) {
	registry := availability.NewRegistry()
	registry.SetDefault(availability.NewStaticProvider(""))

	// The booker is never called; it only enables registration of book_meeting_slot.
	serverContext, err := server.NewServerContext(context.Background(), availability.NewEngine(registry),
		server.WithReadOnly(false),
		server.WithBooker(calendar.NewBooker(nil, "", nil)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("meetslot", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := scheduling_tools.RegisterSchedulingTools(mcpSrv, serverContext); err != nil {
		return nil, fmt.Errorf("failed to register scheduling tools: %w", err)
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}
	return tools, nil
}

func runGenerateDocs(out io.Writer, outputFile string) error {
	tools, err := listAllTools()
	if err != nil {
		return err
	}

	markdown := generateToolsMarkdown(tools)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
		return nil
	}
	_, err = io.WriteString(out, markdown)
	return err
}

// toolCategories orders the sections of the generated reference.
var toolCategories = []struct {
	title string
	tools []string
}{
	{"Availability Tools", []string{scheduling_tools.ToolFindMeetingSlots, scheduling_tools.ToolQueryFreeBusy}},
	{"Booking Tools", []string{scheduling_tools.ToolBookMeetingSlot}},
}

func getCategoryFromToolName(name string) string {
	for _, c := range toolCategories {
		for _, t := range c.tools {
			if t == name {
				return c.title
			}
		}
	}
	return "Other"
}

func anchor(title string) string {
	return strings.ToLower(strings.ReplaceAll(title, " ", "-"))
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	byCategory := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		c := getCategoryFromToolName(tool.Name)
		byCategory[c] = append(byCategory[c], tool)
	}

	titles := make([]string, 0, len(toolCategories)+1)
	for _, c := range toolCategories {
		if len(byCategory[c.title]) > 0 {
			titles = append(titles, c.title)
		}
	}
	if len(byCategory["Other"]) > 0 {
		titles = append(titles, "Other")
	}

	var sb strings.Builder
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("Tools offered by `meetslot serve`. Times are RFC 3339 in the timezone of the request; ")
	sb.WriteString("dates are `YYYY-MM-DD`.\n\n")
	sb.WriteString("**Note:** This file is generated by `meetslot generate-docs`. Do not edit it by hand.\n\n")

	for _, title := range titles {
		fmt.Fprintf(&sb, "- [%s](#%s)\n", title, anchor(title))
	}
	sb.WriteString("\n")

	sb.WriteString("## Read-only and write mode\n\n")
	sb.WriteString("The server starts in read-only mode. `book_meeting_slot` is only offered when the server runs with `--yolo` and a Google calendar is available for booking.\n\n")

	for _, title := range titles {
		categoryTools := byCategory[title]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		fmt.Fprintf(&sb, "## %s\n\n", title)
		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
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

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	// Required arguments first, then alphabetical.
	sort.Slice(names, func(i, j int) bool {
		ri, rj := slices.Contains(tool.InputSchema.Required, names[i]), slices.Contains(tool.InputSchema.Required, names[j])
		if ri != rj {
			return ri
		}
		return names[i] < names[j]
	})

	sb.WriteString("| Argument | Type | Required | Description |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, name := range names {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		required := "no"
		if slices.Contains(tool.InputSchema.Required, name) {
			required = "yes"
		}
		desc, _ := prop["description"].(string)
		fmt.Fprintf(&sb, "| `%s` | %s | %s | %s |\n", name, propertyType(prop), required, strings.ReplaceAll(desc, "|", "\\|"))
	}
	sb.WriteString("\n")
	return sb.String()
}

func propertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}
