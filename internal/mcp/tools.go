package mcp

import "github.com/mark3labs/mcp-go/mcp"

var filterContigsToolDef = mcp.NewTool("filter_contigs",
	mcp.WithDescription("Filter the contigs of an assembly by minimum length. "+
		"Downloads the assembly, keeps contigs with at least min_length residues, "+
		"saves the result as a new assembly with the same name and publishes a report. "+
		"Returns the new assembly reference, contig counts and the report name and reference."),
	mcp.WithString("workspace_name",
		mcp.Required(),
		mcp.Description("Workspace the filtered assembly and the report are saved to"),
	),
	mcp.WithString("assembly_input_ref",
		mcp.Required(),
		mcp.Description("Reference of the assembly to filter, e.g. 123/4/1"),
	),
	mcp.WithNumber("min_length",
		mcp.Required(),
		mcp.Min(0),
		mcp.Description("Minimum contig length to keep (inclusive). 0 keeps every contig"),
	),
	mcp.WithOpenWorldHintAnnotation(true),
	mcp.WithDestructiveHintAnnotation(false),
)

var statusToolDef = mcp.NewTool("status",
	mcp.WithDescription("Report service state and build identity (version, git url, commit hash)."),
	mcp.WithReadOnlyHintAnnotation(true),
)
