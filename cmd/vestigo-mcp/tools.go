package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createSearchLandmarksTool returns the search_landmarks tool definition
func createSearchLandmarksTool() mcp.Tool {
	return mcp.NewTool("search_landmarks",
		mcp.WithDescription("List designated NYC landmarks, filtered by borough and object type"),
		mcp.WithString("borough",
			mcp.Description("Borough filter: Manhattan, Brooklyn, Queens, Bronx, Staten Island"),
		),
		mcp.WithString("object_type",
			mcp.Description("Object type filter, e.g. Individual Landmark, Historic District, Interior Landmark"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum results to return (default: 20, max: 100)"),
		),
	)
}

// createGetLandmarkTool returns the get_landmark tool definition
func createGetLandmarkTool() mcp.Tool {
	return mcp.NewTool("get_landmark",
		mcp.WithDescription("Retrieve one NYC landmark by its LP number"),
		mcp.WithString("lp_number",
			mcp.Required(),
			mcp.Description("Landmark LP number (format: LP-NNNNN)"),
		),
	)
}

// createValidateVectorTool returns the validate_vector tool definition
func createValidateVectorTool() mcp.Tool {
	return mcp.NewTool("validate_vector",
		mcp.WithDescription("Fetch a vector record from the index and validate its ID and metadata"),
		mcp.WithString("vector_id",
			mcp.Required(),
			mcp.Description("Vector ID, e.g. LP-00099-chunk-0 or wiki-Flatiron_Building-LP-01234-chunk-2"),
		),
	)
}
