// Package docs registers the OpenAPI document for the analytics API.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/conversion-rate/": {
            "get": {
                "description": "Computes conversions/revenue for every record and returns the records with the highest and lowest rate",
                "produces": ["application/json"],
                "tags": ["analytics"],
                "summary": "Conversion rate per customer",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.ConversionRateReport"}},
                    "405": {"description": "Method Not Allowed", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/status-distribution/": {
            "get": {
                "description": "Totals by (status, type, category) with record counts, and totals by status",
                "produces": ["application/json"],
                "tags": ["analytics"],
                "summary": "Status distribution",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.StatusDistributionReport"}},
                    "405": {"description": "Method Not Allowed", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/category-type-performance/": {
            "get": {
                "description": "Totals by (category, type); top_performance is the group with the most conversions, null when the dataset is empty",
                "produces": ["application/json"],
                "tags": ["analytics"],
                "summary": "Category/type performance",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.PerformanceReport"}},
                    "405": {"description": "Method Not Allowed", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/filtered-aggregation/": {
            "get": {
                "description": "Averages by customer_id over records whose type is exactly CONVERSION",
                "produces": ["application/json"],
                "tags": ["analytics"],
                "summary": "Average revenue and conversions of CONVERSION records",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.CustomerAverage"}}},
                    "405": {"description": "Method Not Allowed", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/api/dataset/": {
            "get": {
                "description": "Source, load id, record count and columns of the dataset being served",
                "produces": ["application/json"],
                "tags": ["dataset"],
                "summary": "Current dataset",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.TableInfo"}}
                }
            }
        },
        "/api/dataset/loads/": {
            "get": {
                "description": "Most recent loads first, including failed ones",
                "produces": ["application/json"],
                "tags": ["dataset"],
                "summary": "Dataset load history",
                "parameters": [
                    {"type": "integer", "default": 20, "description": "Maximum number of entries", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/model.LoadEntry"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handler.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/handler.errorResponse"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "handler.errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "model.RatedRecord": {
            "type": "object",
            "description": "Every column of the record plus conversion_rate",
            "additionalProperties": true,
            "properties": {
                "customer_id": {},
                "revenue": {"type": "number"},
                "conversions": {"type": "number"},
                "status": {"type": "string"},
                "type": {"type": "string"},
                "category": {"type": "string"},
                "conversion_rate": {"type": "number"}
            }
        },
        "model.CustomerRate": {
            "type": "object",
            "properties": {
                "customer_id": {},
                "conversion_rate": {"type": "number"}
            }
        },
        "model.ConversionRateReport": {
            "type": "object",
            "properties": {
                "conversion_rates": {"type": "array", "items": {"$ref": "#/definitions/model.CustomerRate"}},
                "highest": {"$ref": "#/definitions/model.RatedRecord"},
                "lowest": {"$ref": "#/definitions/model.RatedRecord"}
            }
        },
        "model.StatusGroup": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "type": {"type": "string"},
                "category": {"type": "string"},
                "total_revenue": {"type": "number"},
                "total_conversions": {"type": "number"},
                "count": {"type": "integer"}
            }
        },
        "model.StatusTotal": {
            "type": "object",
            "properties": {
                "status": {"type": "string"},
                "total_revenue": {"type": "number"},
                "total_conversions": {"type": "number"}
            }
        },
        "model.StatusDistributionReport": {
            "type": "object",
            "properties": {
                "status_distribution": {"type": "array", "items": {"$ref": "#/definitions/model.StatusGroup"}},
                "total_status_analysis": {"type": "array", "items": {"$ref": "#/definitions/model.StatusTotal"}}
            }
        },
        "model.CategoryTypePerformance": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "type": {"type": "string"},
                "total_revenue": {"type": "number"},
                "total_conversions": {"type": "number"}
            }
        },
        "model.TopPerformance": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "type": {"type": "string"},
                "total_conversions": {"type": "number"}
            }
        },
        "model.PerformanceReport": {
            "type": "object",
            "properties": {
                "performance": {"type": "array", "items": {"$ref": "#/definitions/model.CategoryTypePerformance"}},
                "top_performance": {"$ref": "#/definitions/model.TopPerformance"}
            }
        },
        "model.CustomerAverage": {
            "type": "object",
            "properties": {
                "customer_id": {},
                "avg_revenue": {"type": "number"},
                "avg_conversions": {"type": "number"}
            }
        },
        "model.TableInfo": {
            "type": "object",
            "properties": {
                "source": {"type": "string"},
                "load_id": {"type": "string"},
                "record_count": {"type": "integer"},
                "columns": {"type": "array", "items": {"type": "string"}},
                "loaded_at": {"type": "string"}
            }
        },
        "model.LoadEntry": {
            "type": "object",
            "properties": {
                "load_id": {"type": "string"},
                "source": {"type": "string"},
                "status": {"type": "string"},
                "records_valid": {"type": "integer"},
                "records_invalid": {"type": "integer"},
                "error": {"type": "string"},
                "loaded_at": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Campaign Analytics API",
	Description:      "Read-only aggregations over the marketing campaign dataset.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
