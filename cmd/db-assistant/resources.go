package main

import (
	"context"
	"fmt"
	"io"

	"github.com/traego/mcp-db-assistant/pkg/client"
)

func listResources(ctx context.Context, c client.McpClient, out io.Writer) error {
	list, err := c.ListResources(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Resources (%d):\n", len(list.Resources))
	for _, r := range list.Resources {
		fmt.Fprintf(out, "  %s  %s", r.URI, r.Name)
		if r.MimeType != "" {
			fmt.Fprintf(out, " (%s)", r.MimeType)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func printResource(ctx context.Context, c client.McpClient, uri string, out io.Writer) error {
	result, err := c.ReadResource(ctx, uri)
	if err != nil {
		return err
	}

	for _, contents := range result.Contents {
		if contents.Text != "" {
			fmt.Fprintln(out, contents.Text)
			continue
		}
		fmt.Fprintf(out, "%s: binary content (%s)\n", contents.URI, contents.MimeType)
	}
	return nil
}
