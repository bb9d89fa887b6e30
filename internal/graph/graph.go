// Package graph generates DOT and Mermaid format dependency graphs from
// declared resources.
package graph

import (
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	wetwire "github.com/lex00/wetwire-rds-go"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator creates dependency graphs from declared resources.
type Generator struct {
	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources by AWS service (EC2, RDS, SecretsManager).
	ClusterByType bool
}

// Generate creates a dependency graph and writes it to w. Edges point from a
// resource to the resources it depends on; GetAtt edges are drawn in blue.
func (g *Generator) Generate(resources []wetwire.DeclaredResource, w io.Writer) error {
	graph := g.buildGraph(resources)

	var output string
	if g.Format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := io.WriteString(w, output)
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(resources []wetwire.DeclaredResource) (string, error) {
	var sb strings.Builder
	if err := g.Generate(resources, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (g *Generator) buildGraph(resources []wetwire.DeclaredResource) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	sorted := append([]wetwire.DeclaredResource(nil), resources...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	if g.ClusterByType {
		g.addClusteredNodes(graph, sorted)
	} else {
		for _, res := range sorted {
			addNode(graph, res)
		}
	}

	declared := make(map[string]bool, len(sorted))
	for _, res := range sorted {
		declared[res.Name] = true
	}

	for _, res := range sorted {
		getAtt := make(map[string]bool, len(res.AttrRefs))
		for _, name := range res.AttrRefs {
			getAtt[name] = true
		}
		for _, dep := range res.Dependencies {
			if !declared[dep] {
				continue
			}
			e := graph.Edge(graph.Node(res.Name), graph.Node(dep))
			if getAtt[dep] {
				e.Attr("color", "blue")
			}
		}
	}

	return graph
}

func addNode(graph *dot.Graph, res wetwire.DeclaredResource) {
	graph.Node(res.Name).Label(res.Name + "\\n[" + res.Type + "]")
}

// addClusteredNodes adds resource nodes grouped by AWS service.
func (g *Generator) addClusteredNodes(graph *dot.Graph, resources []wetwire.DeclaredResource) {
	byService := make(map[string][]wetwire.DeclaredResource)
	var services []string
	for _, res := range resources {
		service := extractService(res.Type)
		if _, ok := byService[service]; !ok {
			services = append(services, service)
		}
		byService[service] = append(byService[service], res)
	}
	sort.Strings(services)

	for _, service := range services {
		members := byService[service]
		if len(members) == 1 {
			addNode(graph, members[0])
			continue
		}
		cluster := graph.Subgraph("cluster_"+service, dot.ClusterOption{})
		cluster.Attr("label", service)
		cluster.Attr("style", "rounded")
		cluster.Attr("bgcolor", "lightyellow")
		for _, res := range members {
			addNode(cluster, res)
		}
	}
}

// extractService extracts the service from a CloudFormation type.
// e.g., "AWS::RDS::DBInstance" -> "RDS"
func extractService(cfType string) string {
	parts := strings.Split(cfType, "::")
	if len(parts) == 3 && parts[1] != "" {
		return parts[1]
	}
	return "Other"
}
