package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vestigo/internal/interfaces"
	"github.com/ternarybob/vestigo/internal/models"
	"github.com/ternarybob/vestigo/internal/services/validation"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// handleSearchLandmarks implements the search_landmarks tool
func handleSearchLandmarks(landmarkService interfaces.LandmarkService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 20)
		if limit > 100 {
			limit = 100
		}

		filter := models.LandmarkFilter{
			Borough:    request.GetString("borough", ""),
			ObjectType: request.GetString("object_type", ""),
			Limit:      limit,
		}

		results, err := landmarkService.ListLandmarks(ctx, filter)
		if err != nil {
			logger.Error().Err(err).Msg("Landmark listing failed")
			return textResult(fmt.Sprintf("Landmark search error: %v", err)), nil
		}

		return textResult(formatLandmarkList(results, filter)), nil
	}
}

// handleGetLandmark implements the get_landmark tool
func handleGetLandmark(landmarkService interfaces.LandmarkService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		lpNumber, err := request.RequireString("lp_number")
		if err != nil || lpNumber == "" {
			return textResult("Error: lp_number parameter is required"), nil
		}

		landmark, err := landmarkService.GetLandmark(ctx, lpNumber)
		if err != nil {
			logger.Error().Err(err).Str("lp_number", lpNumber).Msg("Landmark lookup failed")
			return textResult(fmt.Sprintf("Landmark not found: %v", err)), nil
		}

		return textResult(formatLandmark(landmark)), nil
	}
}

// handleValidateVector implements the validate_vector tool
func handleValidateVector(storage interfaces.VectorStorage, validator *validation.Validator, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		vectorID, err := request.RequireString("vector_id")
		if err != nil || vectorID == "" {
			return textResult("Error: vector_id parameter is required"), nil
		}

		record, err := storage.FetchByID(ctx, vectorID)
		if err != nil {
			record = nil
		}
		report := validator.Validate(vectorID, record)

		return textResult(formatValidationReport(report)), nil
	}
}

func formatLandmarkList(results []*models.Landmark, filter models.LandmarkFilter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Landmarks (%d)\n\n", len(results))
	if filter.Borough != "" {
		fmt.Fprintf(&b, "Borough: %s\n", filter.Borough)
	}
	if filter.ObjectType != "" {
		fmt.Fprintf(&b, "Object type: %s\n", filter.ObjectType)
	}
	b.WriteString("\n")
	for _, landmark := range results {
		fmt.Fprintf(&b, "- **%s** (%s), %s", landmark.Name, landmark.LPNumber, landmark.Borough)
		if landmark.ObjectType != "" {
			fmt.Fprintf(&b, ", %s", landmark.ObjectType)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func formatLandmark(landmark *models.Landmark) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", landmark.Name)
	fmt.Fprintf(&b, "- LP number: %s\n", landmark.LPNumber)
	fmt.Fprintf(&b, "- Borough: %s\n", landmark.Borough)
	fmt.Fprintf(&b, "- Object type: %s\n", landmark.ObjectType)
	if landmark.Address != "" {
		fmt.Fprintf(&b, "- Address: %s\n", landmark.Address)
	}
	if !landmark.DateDesig.IsZero() {
		fmt.Fprintf(&b, "- Designated: %s\n", landmark.DateDesig.Format("2006-01-02"))
	}
	return b.String()
}

func formatValidationReport(report models.ValidationReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Validation: %s\n\n", report.ID)
	if report.IsValid {
		b.WriteString("Result: VALID\n")
		return b.String()
	}
	fmt.Fprintf(&b, "Result: INVALID (%d violations)\n\n", len(report.Violations))
	for _, violation := range report.Violations {
		fmt.Fprintf(&b, "- %s\n", violation)
	}
	return b.String()
}
