package api

import (
	"context"
	"log"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/nkazmin/liveboard/api/rest"
	"github.com/nkazmin/liveboard/api/ws"
	"github.com/nkazmin/liveboard/cache"
	"github.com/nkazmin/liveboard/mq"
	"github.com/nkazmin/liveboard/service"
	"github.com/nkazmin/liveboard/store"
	"github.com/nkazmin/liveboard/worker"
)

type LiveboardAPI struct {
	restHandler *rest.Handler
	wsHandler   *ws.Handler
	shutdownCtx context.Context
}

func NewLiveboardAPI(
	liveboardStore store.LiveboardStore,
	canvasDeletedQueue mq.MessageQueue,
	presenceCache cache.PresenceCache,
	oauthConfigs map[string]*oauth2.Config,
	jwtSecret []byte,
	shutdownCtx context.Context,
) (*LiveboardAPI, error) {
	wsHub := ws.NewHub(presenceCache)
	go wsHub.Run()

	cascadeConsumer := worker.NewCascadeConsumer(canvasDeletedQueue, liveboardStore)
	go cascadeConsumer.Run(shutdownCtx)

	svc, err := service.NewService(
		liveboardStore,
		presenceCache,
		canvasDeletedQueue,
		oauthConfigs,
		jwtSecret,
	)
	if err != nil {
		log.Printf("Failed to create service: %v", err)
		return &LiveboardAPI{}, err
	}

	restHandler := rest.NewHandler(svc)
	wsHandler := ws.NewHandler(svc, wsHub)

	return &LiveboardAPI{
		restHandler: restHandler,
		wsHandler:   wsHandler,
		shutdownCtx: shutdownCtx,
	}, nil
}

func (api *LiveboardAPI) RegisterRoutes(mux *http.ServeMux, requiredOrigin string) {
	// Health check endpoint (no auth required)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/login", api.restHandler.HandleLogin)
	mux.HandleFunc("/me", api.restHandler.HandleMe)

	mux.HandleFunc("/canvases", api.restHandler.HandleCanvases)
	mux.HandleFunc("/canvases/{canvasId}", api.restHandler.HandleCanvas)
	mux.HandleFunc("/canvases/{canvasId}/objects", api.restHandler.HandleObjects)
	mux.HandleFunc("/canvases/{canvasId}/objects/{objectId}", api.restHandler.HandleObject)
	mux.HandleFunc("/canvases/{canvasId}/collaborators", api.restHandler.HandleCollaborators)
	mux.HandleFunc("/canvases/{canvasId}/collaborators/{userId}", api.restHandler.HandleCollaborator)
	mux.HandleFunc("/canvases/{canvasId}/invitations", api.restHandler.HandleCanvasInvitations)
	mux.HandleFunc("/invitations", api.restHandler.HandleUserInvitations)
	mux.HandleFunc("/invitations/{invitationId}/accept", api.restHandler.HandleAcceptInvitation)
	mux.HandleFunc("/invitations/{invitationId}/decline", api.restHandler.HandleDeclineInvitation)

	wsUpgrader := api.wsHandler.NewWsUpgrader(requiredOrigin)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		api.wsHandler.ServeWS(wsUpgrader, w, r, api.shutdownCtx)
	})
}
