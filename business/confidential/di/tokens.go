// Package di contains dependency injection tokens for the confidential context.
package di

import (
	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/app"
	"github.com/evalysfun/evalys-arcium-bridge-service/business/confidential/infra/mxe"
	"github.com/evalysfun/evalys-arcium-bridge-service/internal/di"
)

// Public service tokens - exposed to other modules
var (
	BridgeService = di.NewToken[*app.BridgeService]("confidential.BridgeService")
)

// Private dependency tokens - internal to confidential module
var (
	MXEClient     = di.NewToken[app.MXEClient]("confidential:mxeClient")
	LocalCluster  = di.NewToken[*mxe.LocalCluster]("confidential:localCluster")
	ReceiptLedger = di.NewToken[app.ReceiptLedger]("confidential:receiptLedger")
)

// Helper functions for type-safe access
func GetBridgeService(c di.ServiceRegistry) *app.BridgeService {
	return di.GetToken(c, BridgeService)
}

func GetMXEClient(c di.ServiceRegistry) app.MXEClient {
	return di.GetToken(c, MXEClient)
}

func GetLocalCluster(c di.ServiceRegistry) *mxe.LocalCluster {
	return di.GetToken(c, LocalCluster)
}

func GetReceiptLedger(c di.ServiceRegistry) app.ReceiptLedger {
	return di.GetToken(c, ReceiptLedger)
}
