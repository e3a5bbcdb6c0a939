// ABOUTME: Assembles the MCP server from the tool, resource and prompt handlers
// ABOUTME: Every tool reads and writes through the shared resource controllers
package handlers

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/harperreed/crmdesk/resource"
)

// NewServer registers every CRM tool, resource and prompt.
func NewServer(gate Gate, set *resource.Set, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "crmdesk",
		Version: version,
	}, nil)

	contactHandlers := NewContactHandlers(gate, set.Contacts)
	dealHandlers := NewDealHandlers(gate, set.Deals)
	taskHandlers := NewTaskHandlers(gate, set.Tasks)
	activityHandlers := NewActivityHandlers(gate, set.Activities)
	vizHandlers := NewVizHandlers(gate, set)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_contacts",
		Description: "List contacts, optionally filtered by name, email or company",
	}, contactHandlers.ListContacts)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_contact",
		Description: "Add a new contact to the CRM",
	}, contactHandlers.CreateContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_contact",
		Description: "Update an existing contact's information",
	}, contactHandlers.UpdateContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_contact",
		Description: "Delete a contact",
	}, contactHandlers.DeleteContact)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_deals",
		Description: "List deals, optionally only those in one stage",
	}, dealHandlers.ListDeals)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "deal_pipeline",
		Description: "Show deals grouped by pipeline stage with counts and values",
	}, dealHandlers.DealPipeline)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_deal",
		Description: "Create a new deal for a contact",
	}, dealHandlers.CreateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_deal",
		Description: "Update an existing deal's information including stage and value",
	}, dealHandlers.UpdateDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_deal",
		Description: "Delete a deal",
	}, dealHandlers.DeleteDeal)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks in a view: all, pending, completed or overdue",
	}, taskHandlers.ListTasks)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_task",
		Description: "Create a new task",
	}, taskHandlers.CreateTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_task",
		Description: "Update a task, including marking it completed",
	}, taskHandlers.UpdateTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_task",
		Description: "Delete a task",
	}, taskHandlers.DeleteTask)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_activities",
		Description: "List logged activities, optionally only the most recent",
	}, activityHandlers.ListActivities)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_activity",
		Description: "Log a call, email, meeting or note",
	}, activityHandlers.CreateActivity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_activity",
		Description: "Delete an activity",
	}, activityHandlers.DeleteActivity)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dashboard",
		Description: "Summary statistics across contacts, deals, tasks and activities",
	}, vizHandlers.Dashboard)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_graph",
		Description: "Render the deal pipeline as a Graphviz DOT or SVG graph",
	}, vizHandlers.GenerateGraph)

	resources := NewResourceHandlers(gate, set)
	for _, name := range []string{"contacts", "deals", "tasks", "activities", "pipeline", "dashboard"} {
		server.AddResource(&mcp.Resource{
			URI:      "crm://" + name,
			Name:     name,
			MIMEType: "application/json",
		}, resources.ReadResource)
	}
	for _, name := range []string{"contacts", "deals", "tasks", "activities"} {
		server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: "crm://" + name + "/{id}",
			Name:        name + "-by-id",
			MIMEType:    "application/json",
		}, resources.ReadResource)
	}

	prompts := NewPromptHandlers(gate, set)
	for _, p := range prompts.Prompts() {
		server.AddPrompt(p, prompts.GetPrompt)
	}

	return server
}
