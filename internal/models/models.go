package models

import "time"

// Kind identifies the resource kinds the scanner inspects.
type Kind int

const (
	KindPod Kind = iota
	KindNode
	KindPVC
	KindDeployment
	KindEvent
)

// String returns the kind name as used in reports.
func (k Kind) String() string {
	switch k {
	case KindPod:
		return "Pod"
	case KindNode:
		return "Node"
	case KindPVC:
		return "PVC"
	case KindDeployment:
		return "Deployment"
	case KindEvent:
		return "Event"
	default:
		return "Unknown"
	}
}

// ResourceRef identifies a cluster object uniquely within its kind.
type ResourceRef struct {
	Kind      Kind   `json:"kind"`
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
}

// String renders the ref as "Kind namespace/name", or "Kind name" for
// cluster-scoped kinds.
func (r ResourceRef) String() string {
	if r.Namespace == "" {
		return r.Kind.String() + " " + r.Name
	}
	return r.Kind.String() + " " + r.Namespace + "/" + r.Name
}

// ContainerState captures the status fields of one container that the
// pod rules inspect.
type ContainerState struct {
	Name               string
	Ready              bool
	RestartCount       int32
	WaitingReason      string
	WaitingMessage     string
	TerminatedReason   string
	TerminatedExit     int32
	LastTerminated     string // reason of lastState.terminated, if any
	LastTerminatedExit int32
}

// PodState is the snapshot record for one pod.
type PodState struct {
	Namespace  string
	Name       string
	Phase      string
	Message    string
	NodeName   string
	CreatedAt  time.Time
	Containers []ContainerState
}

// Ref returns the pod's resource reference.
func (p PodState) Ref() ResourceRef {
	return ResourceRef{Kind: KindPod, Namespace: p.Namespace, Name: p.Name}
}

// NodeCondition is one entry of node.status.conditions.
type NodeCondition struct {
	Type           string
	Status         string
	Reason         string
	LastTransition time.Time
}

// NodeState is the snapshot record for one node.
type NodeState struct {
	Name          string
	Unschedulable bool
	Conditions    []NodeCondition
}

// Ref returns the node's resource reference.
func (n NodeState) Ref() ResourceRef {
	return ResourceRef{Kind: KindNode, Name: n.Name}
}

// Condition returns the condition with the given type, if present.
func (n NodeState) Condition(condType string) (NodeCondition, bool) {
	for _, c := range n.Conditions {
		if c.Type == condType {
			return c, true
		}
	}
	return NodeCondition{}, false
}

// PVCState is the snapshot record for one persistent volume claim.
type PVCState struct {
	Namespace    string
	Name         string
	Phase        string
	StorageClass string
	CreatedAt    time.Time
}

// Ref returns the claim's resource reference.
func (p PVCState) Ref() ResourceRef {
	return ResourceRef{Kind: KindPVC, Namespace: p.Namespace, Name: p.Name}
}

// DeploymentCondition is one entry of deployment.status.conditions.
type DeploymentCondition struct {
	Type           string
	Status         string
	Reason         string
	Message        string
	LastTransition time.Time
}

// DeploymentState is the snapshot record for one deployment.
type DeploymentState struct {
	Namespace         string
	Name              string
	DesiredReplicas   int32
	AvailableReplicas int32
	CreatedAt         time.Time
	Conditions        []DeploymentCondition
}

// Ref returns the deployment's resource reference.
func (d DeploymentState) Ref() ResourceRef {
	return ResourceRef{Kind: KindDeployment, Namespace: d.Namespace, Name: d.Name}
}

// Condition returns the condition with the given type, if present.
func (d DeploymentState) Condition(condType string) (DeploymentCondition, bool) {
	for _, c := range d.Conditions {
		if c.Type == condType {
			return c, true
		}
	}
	return DeploymentCondition{}, false
}

// EventState is the snapshot record for one cluster event.
type EventState struct {
	Namespace         string
	Name              string
	Type              string // "Normal" or "Warning"
	Reason            string
	Message           string
	Count             int32
	LastSeen          time.Time
	InvolvedKind      string
	InvolvedNamespace string
	InvolvedName      string
}

// Ref returns the event's own resource reference.
func (e EventState) Ref() ResourceRef {
	return ResourceRef{Kind: KindEvent, Namespace: e.Namespace, Name: e.Name}
}

// Omission records a resource listing that could not be fetched. The
// snapshot stays usable; the report surfaces the gap.
type Omission struct {
	Kind   Kind   `json:"kind"`
	Reason string `json:"reason"`
}

// Snapshot is a point-in-time read of cluster object states. Built once
// per invocation and treated as immutable afterwards.
type Snapshot struct {
	TakenAt     time.Time
	Namespace   string // empty means all namespaces
	Pods        []PodState
	Nodes       []NodeState
	PVCs        []PVCState
	Deployments []DeploymentState
	Events      []EventState
	Omissions   []Omission
}
