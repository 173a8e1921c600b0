package openapi

import (
	"github.com/ehr/fhir2swagger/internal/platform/schema"
)

// fragmentBuilders are the definitions every generated document carries
// regardless of what the traversal reached.
var fragmentBuilders = map[string]func() schema.Node{
	"OperationOutcome": buildOperationOutcomeSchema,
	"Bundle":           buildBundleSchema,
	"unsignedInt":      buildUnsignedIntSchema,
	"Resource":         buildResourceSchema,
	"Signature":        buildSignatureSchema,
	"base64Binary":     buildBase64BinarySchema,
	"decimal":          buildDecimalSchema,
}

// StaticFragments returns fresh copies of the fixed definitions, keyed by
// name.
func StaticFragments() map[string]schema.Node {
	out := make(map[string]schema.Node, len(fragmentBuilders))
	for name, build := range fragmentBuilders {
		out[name] = build()
	}
	return out
}

const elementIDDescription = "Unique id for the element within a resource (for internal references). This may be any string value that does not contain spaces."

func ref(name string) map[string]interface{} {
	return map[string]interface{}{"$ref": schema.DefinitionRef(name)}
}

func describedRef(description, name string) map[string]interface{} {
	return map[string]interface{}{"description": description, "$ref": schema.DefinitionRef(name)}
}

func arrayOfRef(description, name string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"items":       ref(name),
		"type":        "array",
	}
}

func elementID() map[string]interface{} {
	return describedRef(elementIDDescription, "string")
}

// ── Resources ───────────────────────────────────────────────────────────

func buildOperationOutcomeSchema() schema.Node {
	return schema.Node{
		"description": "A collection of error, warning, or information messages that result from a system action.",
		"properties": map[string]interface{}{
			"resourceType": map[string]interface{}{
				"description": "This is a OperationOutcome resource",
				"type":        "string",
			},
			"issue": map[string]interface{}{
				"description": "An error, warning, or information message that results from a system action.",
				"items": map[string]interface{}{
					"description": "A collection of error, warning, or information messages that result from a system action.",
					"properties": map[string]interface{}{
						"id": elementID(),
						"severity": map[string]interface{}{
							"description": "Indicates whether the issue indicates a variation from successful processing.",
							"enum":        []string{"fatal", "error", "warning", "information"},
						},
						"code": map[string]interface{}{
							"description": "Describes the type of the issue.",
							"enum": []string{
								"invalid", "structure", "required", "value", "invariant",
								"security", "login", "unknown", "expired", "forbidden",
								"suppressed", "processing", "not-supported", "duplicate",
								"multiple-matches", "not-found", "deleted", "too-long",
								"code-invalid", "extension", "too-costly", "business-rule",
								"conflict", "transient", "lock-error", "no-store",
								"exception", "timeout", "incomplete", "throttled",
								"informational",
							},
						},
						"details":     describedRef("Additional details about the error.", "CodeableConcept"),
						"diagnostics": describedRef("Additional diagnostic information about the issue.", "string"),
						"location":    arrayOfRef("Deprecated XPath location of the element that caused the issue.", "string"),
						"expression":  arrayOfRef("A simple FHIRPath expression locating the element that caused the issue.", "string"),
					},
					"additionalProperties": false,
				},
				"type": "array",
			},
		},
		"additionalProperties": false,
		"required":             []string{"issue", "resourceType"},
	}
}

func buildBundleSchema() schema.Node {
	return schema.Node{
		"description": "A container for a collection of resources.",
		"properties": map[string]interface{}{
			"resourceType": map[string]interface{}{
				"description": "This is a Bundle resource",
				"type":        "string",
			},
			"identifier": describedRef("A persistent identifier for the bundle that won't change as a bundle is copied from server to server.", "Identifier"),
			"type": map[string]interface{}{
				"description": "Indicates the purpose of this bundle - how it is intended to be used.",
				"enum": []string{
					"document", "message", "transaction", "transaction-response",
					"batch", "batch-response", "history", "searchset", "collection",
				},
			},
			"timestamp": describedRef("The date/time that the bundle was assembled.", "instant"),
			"total":     describedRef("If a set of search matches, the total number of entries of type 'match' across all pages in the search.", "unsignedInt"),
			"link": map[string]interface{}{
				"description": "A series of links that provide context to this bundle.",
				"items":       buildBundleLinkSchema(),
				"type":        "array",
			},
			"entry": map[string]interface{}{
				"description": "An entry in a bundle resource - will either contain a resource or information about a resource (transactions and history only).",
				"items":       buildBundleEntrySchema(),
				"type":        "array",
			},
			"signature": describedRef("Digital Signature - base64 encoded. XML-DSig or a JWT.", "Signature"),
		},
		"additionalProperties": false,
		"required":             []string{"resourceType"},
	}
}

func buildBundleLinkSchema() map[string]interface{} {
	return map[string]interface{}{
		"description": "A container for a collection of resources.",
		"properties": map[string]interface{}{
			"id":       elementID(),
			"relation": describedRef("A name which details the functional use for this link.", "string"),
			"url":      describedRef("The reference details for the link.", "uri"),
		},
		"additionalProperties": false,
	}
}

func buildBundleEntrySchema() map[string]interface{} {
	return map[string]interface{}{
		"description": "A container for a collection of resources.",
		"properties": map[string]interface{}{
			"id": elementID(),
			"link": map[string]interface{}{
				"description": "A series of links that provide context to this entry.",
				"items":       buildBundleLinkSchema(),
				"type":        "array",
			},
			"fullUrl":  describedRef("The Absolute URL for the resource.", "uri"),
			"resource": describedRef("The Resource for the entry. The purpose/meaning of the resource is determined by the Bundle.type.", "Resource"),
			"search": map[string]interface{}{
				"description": "Information about the search process that lead to the creation of this entry.",
				"properties": map[string]interface{}{
					"id": elementID(),
					"mode": map[string]interface{}{
						"description": "Why this entry is in the result set.",
						"enum":        []string{"match", "include", "outcome"},
					},
					"score": describedRef("When searching, the server's search ranking score for the entry.", "decimal"),
				},
				"additionalProperties": false,
			},
			"request": map[string]interface{}{
				"description": "Additional information about how this entry should be processed as part of a transaction or batch.",
				"properties": map[string]interface{}{
					"id": elementID(),
					"method": map[string]interface{}{
						"description": "In a transaction or batch, this is the HTTP action to be executed for this entry.",
						"enum":        []string{"GET", "HEAD", "POST", "PUT", "DELETE", "PATCH"},
					},
					"url":             describedRef("The URL for this entry, relative to the root.", "uri"),
					"ifNoneMatch":     describedRef("If the ETag values match, return a 304 Not Modified status.", "string"),
					"ifModifiedSince": describedRef("Only perform the operation if the last updated date matches.", "instant"),
					"ifMatch":         describedRef("Only perform the operation if the Etag value matches.", "string"),
					"ifNoneExist":     describedRef("Instruct the server not to perform the create if a specified resource already exists.", "string"),
				},
				"additionalProperties": false,
			},
			"response": map[string]interface{}{
				"description": "Indicates the results of processing the corresponding 'request' entry in the batch or transaction being responded to.",
				"properties": map[string]interface{}{
					"id":           elementID(),
					"status":       describedRef("The status code returned by processing this entry.", "string"),
					"location":     describedRef("The location header created by processing this operation.", "uri"),
					"etag":         describedRef("The Etag for the resource, if the operation for the entry produced a versioned resource.", "string"),
					"lastModified": describedRef("The date/time that the resource was modified on the server.", "instant"),
					"outcome":      describedRef("An OperationOutcome containing hints and warnings produced as part of processing this entry.", "Resource"),
				},
				"additionalProperties": false,
			},
		},
		"additionalProperties": false,
	}
}

func buildResourceSchema() schema.Node {
	return schema.Node{
		"properties": map[string]interface{}{
			"resourceType":  map[string]interface{}{"type": "string"},
			"id":            ref("id"),
			"meta":          ref("Meta"),
			"implicitRules": ref("uri"),
			"language":      ref("code"),
		},
	}
}

// ── Data types ──────────────────────────────────────────────────────────

func buildSignatureSchema() schema.Node {
	return schema.Node{
		"description": "A signature along with supporting context. The signature may be a digital signature that is cryptographic in nature, or some other signature acceptable to the domain.",
		"properties": map[string]interface{}{
			"id":           elementID(),
			"type":         arrayOfRef("An indication of the reason that the entity signed this document.", "Coding"),
			"when":         describedRef("When the digital signature was signed.", "instant"),
			"who":          describedRef("A reference to an application-usable description of the identity that signed.", "Reference"),
			"onBehalfOf":   describedRef("A reference to an application-usable description of the identity that is represented by the signature.", "Reference"),
			"targetFormat": describedRef("A mime type that indicates the technical format of the target resources signed by the signature.", "code"),
			"sigFormat":    describedRef("A mime type that indicates the technical format of the signature.", "code"),
			"data":         describedRef("The base64 encoding of the Signature content.", "base64Binary"),
		},
		"additionalProperties": false,
		"required":             []string{"type", "who"},
	}
}

func buildUnsignedIntSchema() schema.Node {
	return schema.Node{
		"pattern":     "^[0]|([1-9][0-9]*)$",
		"type":        "number",
		"description": "An integer with a value that is not negative (e.g. >= 0)",
	}
}

func buildBase64BinarySchema() schema.Node {
	return schema.Node{
		"type":        "string",
		"description": "A stream of bytes",
	}
}

func buildDecimalSchema() schema.Node {
	return schema.Node{
		"pattern":     `^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`,
		"type":        "number",
		"description": "A rational number with implicit precision",
	}
}
