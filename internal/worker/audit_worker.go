package worker

import (
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StartAuditWorker registers the audit log event handlers.
func StartAuditWorker(auditService *service.AuditLogService) {
	if auditService == nil {
		return
	}
	auditService.RegisterHandlers()
}
