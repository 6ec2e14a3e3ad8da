package lib

import (
	"context"
	"fms/src/config"
	"log"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

var innerApp *firebase.App
var innerAuth *auth.Client
var innerFirestore *firestore.Client

func GetFirebaseApp(ctx context.Context, cfg config.FirebaseConfig) (*firebase.App, error) {
	if innerApp != nil {
		return innerApp, nil
	}
	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}
	app, err := firebase.NewApp(ctx, fbConfig, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		log.Printf("error initializing app: %s\n", err.Error())
		return nil, err
	}
	innerApp = app
	return app, nil
}

func GetFirebaseAuth(ctx context.Context, cfg config.FirebaseConfig) (*auth.Client, error) {
	if innerAuth != nil {
		return innerAuth, nil
	}
	app, err := GetFirebaseApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		log.Printf("error initializing Firebase Auth: %s\n", err.Error())
		return nil, err
	}
	innerAuth = client
	return client, nil
}

func GetFirestoreClient(ctx context.Context, cfg config.FirebaseConfig) (*firestore.Client, error) {
	if innerFirestore != nil {
		return innerFirestore, nil
	}
	app, err := GetFirebaseApp(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		log.Printf("error initializing Firestore: %s\n", err.Error())
		return nil, err
	}
	innerFirestore = client
	return client, nil
}
