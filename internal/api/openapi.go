package api

import (
	"github.com/JaimeStill/manifest/internal/config"
	"github.com/JaimeStill/manifest/pkg/openapi"
)

// NewSpec describes the API module's routes. Registry paths are included
// only when the service runs with a database.
func NewSpec(cfg *config.Config) *openapi.Spec {
	spec := openapi.NewSpec(cfg.API.OpenAPI.Title, cfg.Version)
	spec.SetDescription(cfg.API.OpenAPI.Description)
	spec.AddServer(cfg.API.BasePath)

	spec.Components.AddSchemas(schemas)
	spec.Components.AddResponses(map[string]*openapi.Response{
		"Busy":        errorResponse("Another pipeline operation is running"),
		"Unavailable": errorResponse("A backing store is unavailable"),
	})

	ticketPaths(spec)
	pipelinePaths(spec)
	inboxPaths(spec)
	if cfg.UsesDatabase() {
		documentPaths(spec)
	}
	return spec
}

func ticketPaths(spec *openapi.Spec) {
	rowParam := &openapi.Parameter{
		Name:        "row",
		In:          "path",
		Required:    true,
		Description: "Sheet row number",
		Schema:      &openapi.Schema{Type: "integer"},
	}

	spec.Paths["/tickets"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List ticket rows",
			Tags:    []string{"Tickets"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("page", "integer", "Page number", false),
				openapi.QueryParam("page_size", "integer", "Results per page", false),
				openapi.QueryParam("search", "string", "Passenger or PNR search", false),
				openapi.QueryParam("state", "string", "Row state filter", false),
				openapi.QueryParam("category", "string", "TRAIN, FLIGHT or ERROR", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Paged ticket rows", "TicketPage"),
			},
		},
	}
	spec.Paths["/tickets/search"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Search ticket rows",
			Tags:        []string{"Tickets"},
			RequestBody: openapi.RequestBodyJSON("PageRequest", true),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Paged ticket rows", "TicketPage"),
				400: openapi.ResponseRef("BadRequest"),
			},
		},
	}
	spec.Paths["/tickets/export"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "Export ticket rows as an XLSX workbook",
			Tags:    []string{"Tickets"},
			Responses: map[int]*openapi.Response{
				200: {
					Description: "XLSX workbook",
					Content: map[string]*openapi.MediaType{
						"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": {
							Schema: &openapi.Schema{Type: "string", Format: "binary"},
						},
					},
				},
			},
		},
	}
	spec.Paths["/tickets/{row}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Find a ticket row",
			Tags:       []string{"Tickets"},
			Parameters: []*openapi.Parameter{rowParam},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Ticket row", "TicketRow"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}
	spec.Paths["/tickets/{row}/approve"] = &openapi.PathItem{
		Put: &openapi.Operation{
			Summary:     "Record a reviewer decision",
			Tags:        []string{"Tickets"},
			Parameters:  []*openapi.Parameter{rowParam},
			RequestBody: openapi.RequestBodyJSON("ApproveCommand", true),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Updated row", "TicketRow"),
				400: openapi.ResponseRef("BadRequest"),
				404: openapi.ResponseRef("NotFound"),
				409: openapi.ResponseRef("Conflict"),
			},
		},
	}
}

func pipelinePaths(spec *openapi.Spec) {
	op := func(summary, schema string) *openapi.PathItem {
		return &openapi.PathItem{
			Post: &openapi.Operation{
				Summary: summary,
				Tags:    []string{"Pipeline"},
				Responses: map[int]*openapi.Response{
					200: openapi.ResponseJSON("Run report", schema),
					409: openapi.ResponseRef("Busy"),
					503: openapi.ResponseRef("Unavailable"),
				},
			},
		}
	}

	spec.Paths["/pipeline/ingest"] = op("Ingest and extract inbox files", "IngestReport")
	spec.Paths["/pipeline/match"] = op("Suggest guest names for pending rows", "MatchSummary")
	spec.Paths["/pipeline/commit"] = op("Commit approved rows to guest records", "CommitReport")
}

func inboxPaths(spec *openapi.Spec) {
	spec.Paths["/inbox"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List files awaiting ingestion",
			Tags:    []string{"Inbox"},
			Responses: map[int]*openapi.Response{
				200: {
					Description: "Inbox files",
					Content: map[string]*openapi.MediaType{
						"application/json": {
							Schema: &openapi.Schema{Type: "array", Items: openapi.SchemaRef("InboxFile")},
						},
					},
				},
				503: openapi.ResponseRef("Unavailable"),
			},
		},
	}
	spec.Paths["/inbox/download/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "Download an inbox file",
			Tags:    []string{"Inbox"},
			Parameters: []*openapi.Parameter{{
				Name:     "id",
				In:       "path",
				Required: true,
				Schema:   &openapi.Schema{Type: "string"},
			}},
			Responses: map[int]*openapi.Response{
				200: {Description: "File content"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}
}

func documentPaths(spec *openapi.Spec) {
	spec.Paths["/documents"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List registered files",
			Tags:    []string{"Documents"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("page", "integer", "Page number", false),
				openapi.QueryParam("page_size", "integer", "Results per page", false),
				openapi.QueryParam("status", "string", "received, extracted or archived", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Paged registry records", "DocumentPage"),
			},
		},
		Post: &openapi.Operation{
			Summary: "Upload a ticket file into the inbox",
			Tags:    []string{"Documents"},
			RequestBody: &openapi.RequestBody{
				Required: true,
				Content: map[string]*openapi.MediaType{
					"multipart/form-data": {
						Schema: &openapi.Schema{
							Type: "object",
							Properties: map[string]*openapi.Schema{
								"file": {Type: "string", Format: "binary"},
							},
							Required: []string{"file"},
						},
					},
				},
			},
			Responses: map[int]*openapi.Response{
				201: openapi.ResponseJSON("Queued file", "InboxFile"),
				400: openapi.ResponseRef("BadRequest"),
			},
		},
	}
	spec.Paths["/documents/search"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Search registered files",
			Tags:        []string{"Documents"},
			RequestBody: openapi.RequestBodyJSON("PageRequest", true),
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Paged registry records", "DocumentPage"),
			},
		},
	}
	spec.Paths["/documents/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Find a registered file",
			Tags:       []string{"Documents"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Registry record ID")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Registry record", "Document"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}
}

func errorResponse(description string) *openapi.Response {
	return &openapi.Response{
		Description: description,
		Content: map[string]*openapi.MediaType{
			"application/json": {
				Schema: &openapi.Schema{
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"error": {Type: "string", Description: "Error message"},
					},
				},
			},
		},
	}
}

func page(item string) *openapi.Schema {
	return &openapi.Schema{
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"data":        {Type: "array", Items: openapi.SchemaRef(item)},
			"total":       {Type: "integer"},
			"page":        {Type: "integer"},
			"page_size":   {Type: "integer"},
			"total_pages": {Type: "integer"},
		},
	}
}

var schemas = map[string]*openapi.Schema{
	"TicketRow": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"row":           {Type: "integer"},
			"category":      {Type: "string", Enum: []any{"TRAIN", "FLIGHT", "ERROR"}},
			"pnr":           {Type: "string"},
			"passenger":     {Type: "string"},
			"journey_date":  {Type: "string", Example: "14/02/2026"},
			"suggested":     {Type: "string"},
			"score":         {Type: "string"},
			"approved_name": {Type: "string"},
			"commit_status": {Type: "string"},
			"approval_flag": {Type: "string"},
			"state":         {Type: "string"},
		},
	},
	"TicketPage": page("TicketRow"),
	"ApproveCommand": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"name":     {Type: "string", Description: "Guest name as written in the master sheet"},
			"approved": {Type: "boolean"},
		},
		Required: []string{"name", "approved"},
	},
	"InboxFile": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"id":           {Type: "string"},
			"name":         {Type: "string"},
			"content_type": {Type: "string"},
			"size":         {Type: "integer"},
			"modified_at":  {Type: "string", Format: "date-time"},
		},
	},
	"Document": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"id":           {Type: "string", Format: "uuid"},
			"source_id":    {Type: "string"},
			"filename":     {Type: "string"},
			"kind":         {Type: "string"},
			"status":       {Type: "string"},
			"category":     {Type: "string"},
			"row_count":    {Type: "integer"},
			"content_hash": {Type: "string"},
			"claimed_at":   {Type: "string", Format: "date-time"},
			"received_at":  {Type: "string", Format: "date-time"},
		},
	},
	"DocumentPage": page("Document"),
	"IngestReport": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"files":      {Type: "integer"},
			"extracted":  {Type: "integer"},
			"duplicates": {Type: "integer"},
			"deferred":   {Type: "integer"},
			"rows":       {Type: "object"},
			"matching":   openapi.SchemaRef("MatchSummary"),
		},
	},
	"MatchSummary": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"matched":   {Type: "integer"},
			"ambiguous": {Type: "integer"},
			"unmatched": {Type: "integer"},
			"skipped":   {Type: "integer"},
		},
	},
	"CommitReport": {
		Type: "object",
		Properties: map[string]*openapi.Schema{
			"committed": {Type: "integer"},
			"skipped":   {Type: "integer"},
			"errored":   {Type: "integer"},
			"pending":   {Type: "integer"},
			"results":   {Type: "array", Items: &openapi.Schema{Type: "object"}},
		},
	},
}
