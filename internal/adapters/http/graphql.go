package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/placemark/internal/core/domain"
)

// timeField resolves a time.Time or *time.Time struct value as RFC 3339.
func timeField(get func(domain.SavedLocation) *time.Time) *graphql.Field {
	return &graphql.Field{
		Type: graphql.String,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			var loc domain.SavedLocation
			switch v := p.Source.(type) {
			case domain.SavedLocation:
				loc = v
			case *domain.SavedLocation:
				loc = *v
			default:
				return nil, nil
			}
			t := get(loc)
			if t == nil || t.IsZero() {
				return nil, nil
			}
			return t.UTC().Format(time.RFC3339), nil
		},
	}
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	viewportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Viewport",
		Fields: graphql.Fields{
			"center":                    &graphql.Field{Type: geoPointType},
			"zoom":                      &graphql.Field{Type: graphql.Int},
			"locationPermissionGranted": &graphql.Field{Type: graphql.Boolean},
			"phase": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if s, ok := p.Source.(domain.ViewportState); ok {
						return string(s.Phase()), nil
					}
					return nil, nil
				},
			},
		},
	})

	loadingType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Loading",
		Fields: graphql.Fields{
			"pendingRequestCount": &graphql.Field{Type: graphql.Int},
			"isBusy":              &graphql.Field{Type: graphql.Boolean},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"title":       &graphql.Field{Type: graphql.String},
			"link":        &graphql.Field{Type: graphql.String},
			"category":    &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"telephone":   &graphql.Field{Type: graphql.String},
			"address":     &graphql.Field{Type: graphql.String},
			"roadAddress": &graphql.Field{Type: graphql.String},
			"location":    &graphql.Field{Type: geoPointType},
			"distance":    &graphql.Field{Type: graphql.Float},
		},
	})

	searchResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchResult",
		Fields: graphql.Fields{
			"generation": &graphql.Field{Type: graphql.Int},
			"query":      &graphql.Field{Type: graphql.String},
			"stale":      &graphql.Field{Type: graphql.Boolean},
			"results":    &graphql.Field{Type: graphql.NewList(placeType)},
		},
	})

	locationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SavedLocation",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"address":     &graphql.Field{Type: graphql.String},
			"coordinates": &graphql.Field{Type: geoPointType},
			"category":    &graphql.Field{Type: graphql.String},
			"rating":      &graphql.Field{Type: graphql.Int},
			"review":      &graphql.Field{Type: graphql.String},
			"photos":      &graphql.Field{Type: graphql.NewList(graphql.String)},
			"timestamp":   timeField(func(l domain.SavedLocation) *time.Time { return &l.Timestamp }),
			"updatedAt":   timeField(func(l domain.SavedLocation) *time.Time { return l.UpdatedAt }),
		},
	})

	groupType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CategoryGroup",
		Fields: graphql.Fields{
			"category":  &graphql.Field{Type: graphql.String},
			"locations": &graphql.Field{Type: graphql.NewList(locationType)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"viewport": &graphql.Field{
				Type:        viewportType,
				Description: "Current map viewport",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Viewport.State(p.Context)
				},
			},
			"loading": &graphql.Field{
				Type:        loadingType,
				Description: "Outstanding network requests",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Loading.State(), nil
				},
			},
			"locations": &graphql.Field{
				Type:        graphql.NewList(locationType),
				Description: "All saved locations",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Locations.List(p.Context)
				},
			},
			"location": &graphql.Field{
				Type:        locationType,
				Description: "A saved location by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Locations.Get(p.Context, p.Args["id"].(string))
				},
			},
			"groupedLocations": &graphql.Field{
				Type:        graphql.NewList(groupType),
				Description: "Saved locations by display category",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Locations.Grouped(p.Context)
				},
			},
			"search": &graphql.Field{
				Type:        searchResultType,
				Description: "Search places by free text",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Search.Search(p.Context, p.Args["query"].(string))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"setCenter": &graphql.Field{
				Type: viewportType,
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lng": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lng: p.Args["lng"].(float64)}
					return deps.Viewport.SetCenter(p.Context, pt, domain.OriginUser)
				},
			},
			"setZoom": &graphql.Field{
				Type: viewportType,
				Args: graphql.FieldConfigArgument{
					"zoom": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Viewport.SetZoom(p.Context, p.Args["zoom"].(int), domain.OriginUser)
				},
			},
			"resetViewport": &graphql.Field{
				Type: viewportType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Viewport.ResetToDefault(p.Context)
				},
			},
			"deleteLocation": &graphql.Field{
				Type:        graphql.Boolean,
				Description: "Delete a saved location; confirm must be true",
				Args: graphql.FieldConfigArgument{
					"id":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"confirm": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					err := deps.Locations.Delete(p.Context, p.Args["id"].(string), p.Args["confirm"].(bool))
					return err == nil, err
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
