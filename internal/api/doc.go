// Package api provides the fleet automation REST API.
//
//	@title			Fleet Automation API
//	@version		1.0
//	@description	Job scheduling and incident remediation API
//	@BasePath		/api/v1
package api
