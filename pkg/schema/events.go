package schema

// Event types published on the streaming hub.
const (
	EventIntegrationChanged = "integration.changed"
	EventIntegrationDeleted = "integration.deleted"
	EventViewsUpdated       = "views.updated"
	EventViewsFailed        = "views.failed"

	EventGraphCommitted   = "graph.committed"
	EventGraphNodeDeleted = "graph.node_deleted"
	EventLayoutDiscarded  = "layout.discarded"
	EventLayoutFailed     = "layout.failed"

	EventCatalogRefreshed = "catalog.refreshed"
)

// Change reasons attached to integration store notifications.
const (
	ReasonAddStep           = "add_step"
	ReasonDeleteStep        = "delete_step"
	ReasonReplaceStep       = "replace_step"
	ReasonInsertStep        = "insert_step"
	ReasonAddBranch         = "add_branch"
	ReasonUpdateIntegration = "update_integration"
	ReasonDeleteIntegration = "delete_integration"
)
