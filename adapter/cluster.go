package adapter

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"google.golang.org/grpc/health/grpc_health_v1"
)

type Topology struct {
	Brokers           []BrokerInfo
	ClusterSize       int32
	PartitionsCount   int32
	ReplicationFactor int32
	GatewayVersion    string
}

type BrokerInfo struct {
	NodeID     int32
	Host       string
	Port       int32
	Version    string
	Partitions []Partition
}

type Partition struct {
	PartitionID int32
	Role        string
	Health      string
}

func (a *Adapter) Topology(ctx context.Context) (*Topology, error) {
	resp, err := invoke(ctx, a, "Topology", nil, func(ctx context.Context) (*pb.TopologyResponse, error) {
		return a.gateway.Topology(ctx, &pb.TopologyRequest{})
	})
	if err != nil {
		return nil, err
	}

	t := &Topology{
		ClusterSize:       resp.GetClusterSize(),
		PartitionsCount:   resp.GetPartitionsCount(),
		ReplicationFactor: resp.GetReplicationFactor(),
		GatewayVersion:    resp.GetGatewayVersion(),
	}

	for _, b := range resp.GetBrokers() {
		broker := BrokerInfo{
			NodeID:  b.GetNodeId(),
			Host:    b.GetHost(),
			Port:    b.GetPort(),
			Version: b.GetVersion(),
		}

		for _, p := range b.GetPartitions() {
			broker.Partitions = append(broker.Partitions, Partition{
				PartitionID: p.GetPartitionId(),
				Role:        p.GetRole().String(),
				Health:      p.GetHealth().String(),
			})
		}

		t.Brokers = append(t.Brokers, broker)
	}

	return t, nil
}

type HealthStatus string

const (
	HealthUnknown        HealthStatus = "UNKNOWN"
	HealthServing        HealthStatus = "SERVING"
	HealthNotServing     HealthStatus = "NOT_SERVING"
	HealthServiceUnknown HealthStatus = "SERVICE_UNKNOWN"
)

// Healthcheck queries the standard gRPC health service for the gateway service.
func (a *Adapter) Healthcheck(ctx context.Context) (HealthStatus, error) {
	resp, err := invoke(ctx, a, "Healthcheck", nil, func(ctx context.Context) (*grpc_health_v1.HealthCheckResponse, error) {
		return a.health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: GatewayService})
	})
	if err != nil {
		return HealthUnknown, err
	}

	return HealthStatus(resp.GetStatus().String()), nil
}
