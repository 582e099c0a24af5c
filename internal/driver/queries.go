package driver

var IndexQueries = []string{
	"CREATE INDEX ON :Patient(id);",
	"CREATE INDEX ON :Analysis(uuid);",
	"CREATE INDEX ON :Analysis(patient_id);",
	"CREATE INDEX ON :Finding(analysis_uuid);",
}

const (
	// SaveAnalysisQuery writes the analysis and all of its findings in one
	// transaction. count keeps a result row when $findings is empty.
	SaveAnalysisQuery = `
		MERGE (p:Patient {id: $patient_id})
		CREATE (a:Analysis {uuid: $uuid})
		SET a.patient_id = $patient_id,
			a.kind = $kind,
			a.title = $title,
			a.status = $status,
			a.created_at = $created_at,
			a.recommendations = $recommendations,
			a.payload = $payload
		MERGE (p)-[:SUBMITTED]->(a)
		WITH a
		UNWIND $findings AS f
		CREATE (a)-[:HAS_FINDING]->(:Finding {
			analysis_uuid: a.uuid,
			position: f.position,
			condition: f.condition,
			confidence: f.confidence
		})
		RETURN count(f) AS findings
	`

	GetAnalysisQuery = `
		MATCH (a:Analysis {uuid: $uuid})
		RETURN a.uuid AS uuid, a.patient_id AS patient_id, a.kind AS kind, a.title AS title,
			a.status AS status, a.created_at AS created_at,
			a.recommendations AS recommendations, a.payload AS payload
	`

	GetAnalysisFindingsQuery = `
		MATCH (a:Analysis {uuid: $uuid})-[:HAS_FINDING]->(f:Finding)
		RETURN f.condition AS condition, f.confidence AS confidence
		ORDER BY f.position
	`

	ListPatientAnalysesQuery = `
		MATCH (p:Patient {id: $patient_id})-[:SUBMITTED]->(a:Analysis)
		RETURN a.uuid AS uuid, a.patient_id AS patient_id, a.kind AS kind, a.title AS title,
			a.status AS status, a.created_at AS created_at,
			a.recommendations AS recommendations, a.payload AS payload
		ORDER BY a.created_at DESC
		LIMIT $limit
	`
)
