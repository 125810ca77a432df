package api

import "net/http"

// HandleOpenAPI serves the OpenAPI document.
func (h *Handlers) HandleOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write([]byte(openAPIDocument)); err != nil {
		h.logger.Error("failed to write openapi document", "error", err)
	}
}

// HandleSwaggerUI serves the interactive API browser.
func (h *Handlers) HandleSwaggerUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(swaggerUIPage)); err != nil {
		h.logger.Error("failed to write swagger ui", "error", err)
	}
}

const swaggerUIPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <title>Spark Orderbook API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.onload = () => {
      SwaggerUIBundle({
        url: "/api-docs/openapi.json",
        dom_id: "#swagger-ui",
      });
    };
  </script>
</body>
</html>
`

// openAPIDocument describes the HTTP surface. Kept in sync with handlers.go
// by hand; the contract test walks every path listed here.
const openAPIDocument = `{
  "openapi": "3.0.3",
  "info": {
    "title": "Spark Orderbook API",
    "description": "Read-only queries over the indexed Spark orderbook.",
    "version": "1.0.0"
  },
  "paths": {
    "/health": {
      "get": {
        "summary": "Service health",
        "responses": {
          "200": {
            "description": "Service is up",
            "content": {"application/json": {"schema": {"type": "object", "properties": {"status": {"type": "string"}, "time": {"type": "string"}}}}}
          }
        }
      }
    },
    "/orders/list": {
      "get": {
        "summary": "List active orders of a market, newest first",
        "parameters": [
          {"name": "market_id", "in": "query", "required": true, "schema": {"type": "string"}},
          {"name": "order_type", "in": "query", "required": false, "schema": {"type": "string", "enum": ["Buy", "Sell"]}},
          {"name": "user_ne", "in": "query", "required": false, "description": "Exclude this user's orders. Only honored together with order_type.", "schema": {"type": "string"}},
          {"name": "limit", "in": "query", "required": false, "schema": {"type": "integer", "default": 50}},
          {"name": "offset", "in": "query", "required": false, "schema": {"type": "integer", "default": 0}}
        ],
        "responses": {
          "200": {"description": "Orders", "content": {"application/json": {"schema": {"type": "array", "items": {"$ref": "#/components/schemas/Order"}}}}},
          "400": {"description": "Missing or malformed parameter"},
          "500": {"description": "Repository failure"}
        }
      }
    },
    "/orders/spread": {
      "get": {
        "summary": "Best bid and best ask of a market",
        "parameters": [
          {"name": "market_id", "in": "query", "required": true, "schema": {"type": "string"}},
          {"name": "user_ne", "in": "query", "required": false, "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {"description": "Top of the book", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Spread"}}}},
          "400": {"description": "Missing or malformed parameter"},
          "500": {"description": "Repository failure"}
        }
      }
    },
    "/orders/best-bid": {
      "get": {
        "summary": "Highest-priced active buy order of a market",
        "parameters": [
          {"name": "market_id", "in": "query", "required": true, "schema": {"type": "string"}},
          {"name": "user_ne", "in": "query", "required": false, "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {"description": "Best bid, or null when the side is empty", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Order", "nullable": true}}}},
          "400": {"description": "Missing or malformed parameter"},
          "500": {"description": "Repository failure"}
        }
      }
    },
    "/orders/best-ask": {
      "get": {
        "summary": "Lowest-priced active sell order of a market",
        "parameters": [
          {"name": "market_id", "in": "query", "required": true, "schema": {"type": "string"}},
          {"name": "user_ne", "in": "query", "required": false, "schema": {"type": "string"}}
        ],
        "responses": {
          "200": {"description": "Best ask, or null when the side is empty", "content": {"application/json": {"schema": {"$ref": "#/components/schemas/Order", "nullable": true}}}},
          "400": {"description": "Missing or malformed parameter"},
          "500": {"description": "Repository failure"}
        }
      }
    },
    "/trades/list": {
      "get": {
        "summary": "List trades of a market, newest first",
        "parameters": [
          {"name": "market_id", "in": "query", "required": true, "schema": {"type": "string"}},
          {"name": "limit", "in": "query", "required": false, "schema": {"type": "integer", "default": 50}},
          {"name": "offset", "in": "query", "required": false, "schema": {"type": "integer", "default": 0}}
        ],
        "responses": {
          "200": {"description": "Trades", "content": {"application/json": {"schema": {"type": "array", "items": {"$ref": "#/components/schemas/Trade"}}}}},
          "400": {"description": "Missing or malformed parameter"},
          "500": {"description": "Repository failure"}
        }
      }
    }
  },
  "components": {
    "schemas": {
      "Order": {
        "type": "object",
        "properties": {
          "tx_id": {"type": "string"},
          "order_id": {"type": "string"},
          "order_type": {"type": "string", "enum": ["Buy", "Sell"]},
          "user": {"type": "string"},
          "asset": {"type": "string"},
          "amount": {"type": "integer", "format": "uint64"},
          "price": {"type": "integer", "format": "uint64"},
          "status": {"type": "string", "enum": ["New", "PartiallyMatched", "Matched", "Cancelled", "Failed"]},
          "block_number": {"type": "integer", "format": "int64"},
          "timestamp": {"type": "string", "format": "date-time"},
          "market_id": {"type": "string"}
        }
      },
      "Trade": {
        "type": "object",
        "properties": {
          "tx_id": {"type": "string"},
          "trade_id": {"type": "string"},
          "order_id": {"type": "string"},
          "limit_type": {"type": "string", "enum": ["GTC", "IOC", "FOK", "MKT"]},
          "user": {"type": "string"},
          "size": {"type": "integer", "format": "uint64"},
          "price": {"type": "integer", "format": "uint64"},
          "block_number": {"type": "integer", "format": "int64"},
          "timestamp": {"type": "string", "format": "date-time"},
          "market_id": {"type": "string"}
        }
      },
      "Spread": {
        "type": "object",
        "properties": {
          "best_bid": {"$ref": "#/components/schemas/Order", "nullable": true},
          "best_ask": {"$ref": "#/components/schemas/Order", "nullable": true}
        }
      }
    }
  }
}
`
