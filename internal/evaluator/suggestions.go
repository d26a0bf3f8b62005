package evaluator

import "fmt"

// Finding categories. Each maps to exactly one detection rule.
const (
	CategoryCrashLoopBackOff           = "CrashLoopBackOff"
	CategoryImagePullBackOff           = "ImagePullBackOff"
	CategoryCreateContainerConfigError = "CreateContainerConfigError"
	CategoryOOMKilled                  = "OOMKilled"
	CategoryHighRestartCount           = "HighRestartCount"
	CategoryPodPending                 = "PodPending"
	CategoryNodeNotReady               = "NodeNotReady"
	CategoryNodeUnschedulable          = "NodeUnschedulable"
	CategoryNodeMemoryPressure         = "NodeMemoryPressure"
	CategoryNodeDiskPressure           = "NodeDiskPressure"
	CategoryNodePIDPressure            = "NodePIDPressure"
	CategoryPVCUnbound                 = "PVCUnbound"
	CategoryPVCLost                    = "PVCLost"
	CategoryDeploymentStuck            = "DeploymentStuck"
	CategoryDeploymentNotProgressing   = "DeploymentNotProgressing"
	CategoryWarningEvent               = "WarningEvent"
)

// Remediation text lives here, not in rule logic, so messaging changes
// never touch detection code. Placeholders are filled per finding.
var suggestionTemplates = map[string]string{
	CategoryCrashLoopBackOff:           "Inspect logs with `kubectl logs -n %s %s -c %s --previous`. Common fixes: application crash on startup, bad env/config, liveness probe too aggressive.",
	CategoryImagePullBackOff:           "Check image name/tag and registry credentials (imagePullSecrets). `kubectl describe pod -n %s %s` shows the pull error.",
	CategoryCreateContainerConfigError: "Likely a bad command/args/env or missing ConfigMap/Secret reference. `kubectl describe pod -n %s %s` and review the container spec.",
	CategoryOOMKilled:                  "Increase memory requests/limits for container %s or investigate a memory leak; examine logs prior to termination.",
	CategoryHighRestartCount:           "Investigate repeated restarts: `kubectl logs -n %s %s --previous`; check liveness vs startup probe configuration.",
	CategoryPodPending:                 "`kubectl describe pod -n %s %s` to see scheduling events; check PVC binding, node selectors, taints, and resource requests.",
	CategoryNodeNotReady:               "Check kubelet, disk, and network on the node: `kubectl describe node %s` and the kubelet logs on the host.",
	CategoryNodeUnschedulable:          "Node is cordoned. If maintenance is finished: `kubectl uncordon %s`.",
	CategoryNodeMemoryPressure:         "Investigate memory usage and evictions on node %s; consider adding capacity or lowering workload requests.",
	CategoryNodeDiskPressure:           "Free disk space on node %s (image garbage collection, log rotation) or add capacity.",
	CategoryNodePIDPressure:            "Process count on node %s is critical; look for fork-bombing workloads or raise the pid limit.",
	CategoryPVCUnbound:                 "Check StorageClass and PV availability: `kubectl describe pvc -n %s %s` shows provisioning events.",
	CategoryPVCLost:                    "The bound PV is gone. Inspect `kubectl describe pvc -n %s %s` and the underlying storage backend.",
	CategoryDeploymentStuck:            "Check the rollout: `kubectl rollout status deployment/%s -n %s`; inspect pods for crash or scheduling issues.",
	CategoryDeploymentNotProgressing:   "`kubectl describe deployment -n %s %s`; check ReplicaSet events and the progress deadline.",
	CategoryWarningEvent:               "Investigate the involved object: `kubectl describe %s %s`.",
}

func suggestion(category string, args ...interface{}) string {
	tmpl, ok := suggestionTemplates[category]
	if !ok {
		return ""
	}
	return fmt.Sprintf(tmpl, args...)
}
