package service

import (
	"github.com/nkazmin/liveboard/cache"
	"github.com/nkazmin/liveboard/mq"
	"github.com/nkazmin/liveboard/store"
	"golang.org/x/oauth2"
)

type Service struct {
	Store        store.LiveboardStore
	Cache        cache.PresenceCache
	MQ           mq.MessageQueue
	OAuthConfigs map[string]*oauth2.Config
	JWTSecret    []byte
}

func NewService(
	store store.LiveboardStore,
	cache cache.PresenceCache,
	mq mq.MessageQueue,
	oauthConfigs map[string]*oauth2.Config,
	jwtSecret []byte,
) (*Service, error) {
	oauthConfigs, err := addOauthEndpointsAndScopes(oauthConfigs)
	if err != nil {
		return nil, err
	}

	return &Service{
		Store:        store,
		Cache:        cache,
		MQ:           mq,
		OAuthConfigs: oauthConfigs,
		JWTSecret:    jwtSecret,
	}, nil
}
