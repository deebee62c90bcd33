// Package graphql exposes the task collection as a GraphQL schema:
// one query (allTasks) and three mutations (createTask, updateTask,
// deleteTask) sharing the REST surface's validation engine.
package graphql

import (
	"errors"
	"strconv"

	"github.com/graphql-go/graphql"

	"taskboard/internal/auth"
	"taskboard/internal/tasks"
)

var (
	errAuthRequired = errors.New("Authentication required")

	// one message for missing and foreign ids, so mutations never
	// reveal whether another user's task exists
	errNotAllowed = errors.New("Not found or not allowed")
)

var taskType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Task",
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.NewNonNull(graphql.ID),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return p.Source.(tasks.Task).ID, nil
			},
		},
		"title": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return p.Source.(tasks.Task).Title, nil
			},
		},
		"status": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return string(p.Source.(tasks.Task).Status), nil
			},
		},
		"createdAt": &graphql.Field{
			Type: graphql.NewNonNull(graphql.DateTime),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return p.Source.(tasks.Task).CreatedAt, nil
			},
		},
		"owner": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Int),
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return p.Source.(tasks.Task).OwnerID, nil
			},
		},
	},
})

var taskPayloadType = graphql.NewObject(graphql.ObjectConfig{
	Name: "TaskPayload",
	Fields: graphql.Fields{
		"ok":     &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"task":   &graphql.Field{Type: taskType},
		"errors": &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})

var deletePayloadType = graphql.NewObject(graphql.ObjectConfig{
	Name: "DeletePayload",
	Fields: graphql.Fields{
		"ok": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
	},
})

// NewSchema builds the executable schema over the given engine and
// repository. Resolvers read the caller identity from the request
// context; the HTTP handler guarantees it is present, but each resolver
// still refuses anonymous callers on its own.
func NewSchema(engine *tasks.Engine, repo tasks.Repository) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"allTasks": &graphql.Field{
				Type: graphql.NewList(taskType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					identity, ok := identityFrom(p)
					if !ok {
						return nil, errAuthRequired
					}
					return repo.ListOwned(identity.ID)
				},
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createTask": &graphql.Field{
				Type: taskPayloadType,
				Args: graphql.FieldConfigArgument{
					"title":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"status": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					identity, ok := identityFrom(p)
					if !ok {
						return nil, errAuthRequired
					}

					in := tasks.CreateInput{
						Title:  p.Args["title"].(string),
						Status: optionalString(p.Args, "status"),
					}
					t, ferrs, err := engine.Create(identity, in)
					if err != nil {
						return nil, err
					}
					if len(ferrs) > 0 {
						return failedPayload(ferrs), nil
					}
					return okPayload(t), nil
				},
			},
			"updateTask": &graphql.Field{
				Type: taskPayloadType,
				Args: graphql.FieldConfigArgument{
					"id":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
					"title":  &graphql.ArgumentConfig{Type: graphql.String},
					"status": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					identity, ok := identityFrom(p)
					if !ok {
						return nil, errAuthRequired
					}
					id, ok := argID(p.Args)
					if !ok {
						return nil, errNotAllowed
					}

					existing, err := repo.FindOwned(identity.ID, id)
					if err != nil {
						return nil, notAllowedOr(err)
					}

					t, ferrs, err := engine.Update(identity, existing, tasks.UpdateInput{
						Title:  optionalString(p.Args, "title"),
						Status: optionalString(p.Args, "status"),
					})
					if err != nil {
						return nil, notAllowedOr(err)
					}
					if len(ferrs) > 0 {
						return failedPayload(ferrs), nil
					}
					return okPayload(t), nil
				},
			},
			"deleteTask": &graphql.Field{
				Type: deletePayloadType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					identity, ok := identityFrom(p)
					if !ok {
						return nil, errAuthRequired
					}
					id, ok := argID(p.Args)
					if !ok {
						return nil, errNotAllowed
					}

					if err := engine.Delete(identity, id); err != nil {
						return nil, notAllowedOr(err)
					}
					return map[string]any{"ok": true}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}

func identityFrom(p graphql.ResolveParams) (auth.Identity, bool) {
	identity, ok := auth.IdentityFrom(p.Context)
	if !ok || identity.Anonymous() {
		return auth.Identity{}, false
	}
	return identity, true
}

func optionalString(args map[string]any, key string) *string {
	v, ok := args[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

func argID(args map[string]any) (int64, bool) {
	s, ok := args["id"].(string)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func okPayload(t tasks.Task) map[string]any {
	return map[string]any{"ok": true, "task": t, "errors": []string{}}
}

func failedPayload(ferrs tasks.FieldErrors) map[string]any {
	return map[string]any{"ok": false, "task": nil, "errors": ferrs.Strings()}
}

func notAllowedOr(err error) error {
	if errors.Is(err, tasks.ErrNotFound) {
		return errNotAllowed
	}
	return err
}
