package validator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/api/meta"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/client-go/dynamic"
	sigsyaml "sigs.k8s.io/yaml"
)

const fieldManager = "kubenspector"

// Status classifies the outcome of validating one manifest document.
type Status int

const (
	// StatusValid means the API server accepted the document in dry-run.
	StatusValid Status = iota
	// StatusInvalid means the document failed shallow checks or was
	// rejected by the server.
	StatusInvalid
	// StatusUnknown means structural checks passed but server-side
	// validation could not run.
	StatusUnknown
)

// String returns the status label as used in output.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	case StatusUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Document is one decoded manifest document.
type Document struct {
	Index      int
	APIVersion string
	Kind       string
	Namespace  string
	Name       string

	object map[string]any
}

// DocumentResult pairs a document with its validation outcome.
type DocumentResult struct {
	Document Document
	Status   Status
	Message  string
}

// Result holds the validation outcome for one manifest file.
type Result struct {
	Path      string
	Documents []DocumentResult
}

// HasInvalid reports whether any document failed validation.
func (r *Result) HasInvalid() bool {
	for _, doc := range r.Documents {
		if doc.Status == StatusInvalid {
			return true
		}
	}
	return false
}

// Validator checks manifest files against the API server via dry-run,
// falling back to shallow structural checks when the server cannot be
// reached.
type Validator struct {
	client    dynamic.Interface
	mapper    meta.RESTMapper
	namespace string
}

// New creates a validator. A nil client restricts validation to shallow
// structural checks.
func New(client dynamic.Interface, mapper meta.RESTMapper, namespace string) *Validator {
	return &Validator{
		client:    client,
		mapper:    mapper,
		namespace: namespace,
	}
}

// ValidateFile validates every document in a multi-document manifest
// file. Structural failures mark a document invalid without contacting
// the server; structurally sound documents are checked with a
// server-side dry-run when a client is available.
func (v *Validator) ValidateFile(ctx context.Context, path string) (*Result, error) {
	docs, err := parseManifest(path)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("manifest %s contains no documents", path)
	}

	result := &Result{Path: path, Documents: make([]DocumentResult, 0, len(docs))}
	for _, doc := range docs {
		result.Documents = append(result.Documents, v.validateDocument(ctx, doc))
	}

	return result, nil
}

// ApplyFile applies every document in a manifest file after a fresh
// dry-run pass. Application stops at the first failure; already applied
// documents are not rolled back and nothing is retried.
func (v *Validator) ApplyFile(ctx context.Context, path string) (*Result, error) {
	if v.client == nil {
		return nil, errors.New("apply requires cluster access")
	}

	result, err := v.ValidateFile(ctx, path)
	if err != nil {
		return nil, err
	}
	for _, doc := range result.Documents {
		if doc.Status != StatusValid {
			return result, fmt.Errorf("document %d (%s) is %s: %s",
				doc.Document.Index, describeDocument(doc.Document), doc.Status, doc.Message)
		}
	}

	for i, doc := range result.Documents {
		if err := v.submit(ctx, doc.Document, false); err != nil {
			result.Documents[i].Status = StatusInvalid
			result.Documents[i].Message = err.Error()
			return result, fmt.Errorf("apply %s: %w", describeDocument(doc.Document), err)
		}
		slog.Debug("applied manifest document", "document", describeDocument(doc.Document))
	}

	return result, nil
}

func (v *Validator) validateDocument(ctx context.Context, doc Document) DocumentResult {
	if msg := shallowCheck(doc); msg != "" {
		return DocumentResult{Document: doc, Status: StatusInvalid, Message: msg}
	}

	if v.client == nil || v.mapper == nil {
		return DocumentResult{
			Document: doc,
			Status:   StatusUnknown,
			Message:  "structural checks passed; server-side validation unavailable",
		}
	}

	if err := v.submit(ctx, doc, true); err != nil {
		if isDiscoveryError(err) {
			return DocumentResult{
				Document: doc,
				Status:   StatusUnknown,
				Message:  fmt.Sprintf("kind %s not known to the cluster: %v", doc.Kind, err),
			}
		}
		if isTransportError(err) {
			return DocumentResult{
				Document: doc,
				Status:   StatusUnknown,
				Message:  fmt.Sprintf("server-side validation unavailable: %v", err),
			}
		}
		return DocumentResult{Document: doc, Status: StatusInvalid, Message: err.Error()}
	}

	return DocumentResult{Document: doc, Status: StatusValid, Message: "accepted by server dry-run"}
}

// submit sends the document to the API server, as a dry-run when
// requested and as a server-side apply otherwise.
func (v *Validator) submit(ctx context.Context, doc Document, dryRun bool) error {
	obj, err := toUnstructured(doc)
	if err != nil {
		return err
	}

	gvk := obj.GroupVersionKind()
	mapping, err := v.mapper.RESTMapping(gvk.GroupKind(), gvk.Version)
	if err != nil {
		return fmt.Errorf("resolve resource for %s: %w", gvk, err)
	}

	resource := v.client.Resource(mapping.Resource)
	var target dynamic.ResourceInterface = resource
	if mapping.Scope.Name() == meta.RESTScopeNameNamespace {
		target = resource.Namespace(v.resolveNamespace(doc))
	}

	options := metav1.ApplyOptions{FieldManager: fieldManager, Force: true}
	if dryRun {
		options.DryRun = []string{metav1.DryRunAll}
	}

	_, err = target.Apply(ctx, obj.GetName(), obj, options)
	return err
}

func (v *Validator) resolveNamespace(doc Document) string {
	if doc.Namespace != "" {
		return doc.Namespace
	}
	if v.namespace != "" {
		return v.namespace
	}
	return "default"
}

// parseManifest decodes a multi-document YAML manifest. Empty documents
// are skipped; document indexes are one-based and count non-empty
// documents only.
func parseManifest(path string) ([]Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	var docs []Document

	for {
		var raw any
		if err := decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parse manifest %s: %w", path, err)
		}
		if raw == nil {
			continue
		}

		mapping, ok := raw.(map[string]any)
		if !ok {
			docs = append(docs, Document{Index: len(docs) + 1})
			continue
		}
		if len(mapping) == 0 {
			continue
		}

		doc := Document{
			Index:  len(docs) + 1,
			object: mapping,
		}
		doc.APIVersion, _ = mapping["apiVersion"].(string)
		doc.Kind, _ = mapping["kind"].(string)
		if metadata, ok := mapping["metadata"].(map[string]any); ok {
			doc.Name, _ = metadata["name"].(string)
			doc.Namespace, _ = metadata["namespace"].(string)
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

// shallowCheck verifies the fields every Kubernetes object must carry.
// Returns an empty string when the document passes.
func shallowCheck(doc Document) string {
	if doc.object == nil {
		return "document is not a mapping"
	}

	var missing []string
	if strings.TrimSpace(doc.APIVersion) == "" {
		missing = append(missing, "apiVersion")
	}
	if strings.TrimSpace(doc.Kind) == "" {
		missing = append(missing, "kind")
	}
	if strings.TrimSpace(doc.Name) == "" {
		missing = append(missing, "metadata.name")
	}
	if len(missing) == 0 {
		return ""
	}
	return "missing required fields: " + strings.Join(missing, ", ")
}

// toUnstructured rebuilds the document through a JSON round trip so the
// object graph only holds types the apimachinery deep-copy accepts.
func toUnstructured(doc Document) (*unstructured.Unstructured, error) {
	raw, err := yaml.Marshal(doc.object)
	if err != nil {
		return nil, fmt.Errorf("re-encode document %d: %w", doc.Index, err)
	}

	var object map[string]any
	if err := sigsyaml.Unmarshal(raw, &object); err != nil {
		return nil, fmt.Errorf("convert document %d: %w", doc.Index, err)
	}

	return &unstructured.Unstructured{Object: object}, nil
}

// isTransportError reports whether the request never produced a server
// verdict, so the document cannot be judged valid or invalid.
func isTransportError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func isDiscoveryError(err error) bool {
	if err == nil {
		return false
	}
	if meta.IsNoMatchError(err) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "no matches for") ||
		strings.Contains(message, "could not find the requested resource")
}

// describeDocument renders a document identifier for errors and logs.
func describeDocument(doc Document) string {
	if doc.Namespace != "" {
		return fmt.Sprintf("%s %s/%s", doc.Kind, doc.Namespace, doc.Name)
	}
	return fmt.Sprintf("%s %s", doc.Kind, doc.Name)
}
