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

	"github.com/teemow/graphcal/internal/graph"
	"github.com/teemow/graphcal/internal/identity"
	"github.com/teemow/graphcal/internal/server"
)

// Tool categories used in the generated reference.
const (
	categorySignIn = "Sign-in Tools"
	categoryRead   = "Calendar Read Tools"
	categoryWrite  = "Calendar Write Tools"
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
in markdown format, so the reference always matches the tool definitions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// registeredTools registers the tools with placeholder credentials and
// returns them. Nothing is sent to Graph.
func registeredTools(readOnly bool) ([]mcp.Tool, error) {
	store := identity.NewMemoryStore()
	defer store.Stop()

	idc, err := identity.NewOAuthClient(identity.OAuthConfig{ClientID: "generate-docs"}, store, nil)
	if err != nil {
		return nil, err
	}

	serverContext, err := server.NewServerContext(context.Background(), graph.NewService(graph.DefaultConfig()), idc, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		_ = serverContext.Shutdown()
	}()

	mcpSrv := mcpserver.NewMCPServer("graphcal", version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
		return nil, err
	}

	serverTools := mcpSrv.ListTools()
	tools := make([]mcp.Tool, 0, len(serverTools))
	for _, serverTool := range serverTools {
		tools = append(tools, serverTool.Tool)
	}
	return tools, nil
}

func runGenerateDocs(outputFile string, stdout, stderr io.Writer) error {
	tools, err := registeredTools(false)
	if err != nil {
		return err
	}
	readOnlyTools, err := registeredTools(true)
	if err != nil {
		return err
	}

	readOnly := make(map[string]bool, len(readOnlyTools))
	for _, tool := range readOnlyTools {
		readOnly[tool.Name] = true
	}

	markdown := generateToolsMarkdown(tools, readOnly)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(stderr, "Documentation written to: %s\n", outputFile)
		return nil
	}

	_, err = io.WriteString(stdout, markdown)
	return err
}

func generateToolsMarkdown(tools []mcp.Tool, readOnly map[string]bool) string {
	var sb strings.Builder

	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running graphcal as an MCP server.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	toolsByCategory := groupToolsByCategory(tools, readOnly)

	sb.WriteString("## Table of Contents\n\n")
	categories := make([]string, 0, len(toolsByCategory))
	for category := range toolsByCategory {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categoryOrder(categories[i]) < categoryOrder(categories[j])
	})

	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor))
	}
	sb.WriteString("\n")

	sb.WriteString("## Users\n\n")
	sb.WriteString("Every tool accepts an optional `user` argument naming the signed-in user to act for:\n\n")
	sb.WriteString("- **Default behavior:** If `user` is not specified, the user passed to `graphcal serve --user` is used\n")
	sb.WriteString("- **Signing in:** Users sign in with `graphcal login` or with `graph_get_auth_url` followed by `graph_save_auth_code`\n")
	sb.WriteString("- **Read-only mode:** `graphcal serve --read-only` does not register the write tools\n\n")

	for _, category := range categories {
		categoryTools := toolsByCategory[category]
		sort.Slice(categoryTools, func(i, j int) bool {
			return categoryTools[i].Name < categoryTools[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))

		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func groupToolsByCategory(tools []mcp.Tool, readOnly map[string]bool) map[string][]mcp.Tool {
	categories := make(map[string][]mcp.Tool)

	for _, tool := range tools {
		category := toolCategory(tool.Name, readOnly[tool.Name])
		categories[category] = append(categories[category], tool)
	}

	return categories
}

// toolCategory places sign-in tools first, then tools available in
// read-only mode, then the write tools.
func toolCategory(name string, availableReadOnly bool) string {
	switch {
	case strings.Contains(name, "_auth_"):
		return categorySignIn
	case availableReadOnly:
		return categoryRead
	default:
		return categoryWrite
	}
}

func categoryOrder(category string) int {
	switch category {
	case categorySignIn:
		return 0
	case categoryRead:
		return 1
	default:
		return 2
	}
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %s\n\n", tool.Name))

	if tool.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", tool.Description))
	}

	if len(tool.InputSchema.Properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(tool.InputSchema.Properties))
		for name := range tool.InputSchema.Properties {
			propNames = append(propNames, name)
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			propMap, ok := tool.InputSchema.Properties[name].(map[string]interface{})
			if !ok {
				continue
			}

			requiredStr := "optional"
			if slices.Contains(tool.InputSchema.Required, name) {
				requiredStr = "required"
			}

			sb.WriteString(fmt.Sprintf("- `%s` (%s, %s): ", name, getPropertyType(propMap), requiredStr))
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]interface{}) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}
