package server

import "pizza-service/internal/common/validation"

const (
	schemaRegister  = "register"
	schemaLogin     = "login"
	schemaUpdate    = "updateUser"
	schemaMenuItem  = "menuItem"
	schemaFranchise = "franchise"
	schemaStore     = "store"
	schemaOrder     = "order"
)

var nonEmpty = validation.Int(1)

// schemaMessages replaces the generated summary for schemas whose clients
// match on a fixed message.
var schemaMessages = map[string]string{
	schemaRegister: "name, email, and password are required",
}

var requestSchemas = map[string]validation.JSONSchema{
	schemaRegister: {
		Type: "object",
		Properties: map[string]validation.Property{
			"name":     {Type: "string", MinLength: nonEmpty},
			"email":    {Type: "string", MinLength: nonEmpty},
			"password": {Type: "string", MinLength: nonEmpty},
		},
		Required: []string{"name", "email", "password"},
	},
	schemaLogin: {
		Type: "object",
		Properties: map[string]validation.Property{
			"email":    {Type: "string", MinLength: nonEmpty},
			"password": {Type: "string", MinLength: nonEmpty},
		},
		Required: []string{"email", "password"},
	},
	schemaUpdate: {
		Type: "object",
		Properties: map[string]validation.Property{
			"email":    {Type: "string"},
			"password": {Type: "string"},
		},
	},
	schemaMenuItem: {
		Type: "object",
		Properties: map[string]validation.Property{
			"title":       {Type: "string", MinLength: nonEmpty},
			"description": {Type: "string"},
			"image":       {Type: "string"},
			"price":       {Type: "number", Minimum: validation.Float(0)},
		},
		Required: []string{"title", "price"},
	},
	schemaFranchise: {
		Type: "object",
		Properties: map[string]validation.Property{
			"name": {Type: "string", MinLength: nonEmpty},
			"admins": {
				Type: "array",
				Items: &validation.Property{
					Type:       "object",
					Properties: map[string]validation.Property{"email": {Type: "string", MinLength: nonEmpty}},
					Required:   []string{"email"},
				},
			},
		},
		Required: []string{"name"},
	},
	schemaStore: {
		Type:       "object",
		Properties: map[string]validation.Property{"name": {Type: "string", MinLength: nonEmpty}},
		Required:   []string{"name"},
	},
	schemaOrder: {
		Type: "object",
		Properties: map[string]validation.Property{
			"franchiseId": {Type: "string", MinLength: nonEmpty},
			"storeId":     {Type: "string", MinLength: nonEmpty},
			"items": {
				Type:     "array",
				MinItems: nonEmpty,
				Items: &validation.Property{
					Type:       "object",
					Properties: map[string]validation.Property{"menuId": {Type: "string", MinLength: nonEmpty}},
					Required:   []string{"menuId"},
				},
			},
		},
		Required: []string{"franchiseId", "storeId", "items"},
	},
}
