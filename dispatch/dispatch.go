// Package dispatch owns the atomic (incident, resource) pair transitions.
// Matching policy — which unit to send — belongs to the caller; the engine
// only guarantees the state machines cannot drift apart.
package dispatch

import (
	"context"
	"log"
	"time"

	"tirtha/db"
	"tirtha/models"
	"tirtha/mq"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Assign deploys a resource against a pending incident. The resource CAS
// runs first: once a unit is marked deployed no concurrent assign can take
// it, and if the incident CAS then loses its race the deploy is compensated.
// The failure window therefore only ever shows a deployed resource against a
// still-pending incident — never an assigned incident on a free resource.
func Assign(ctx context.Context, incidentID, resourceID string) error {
	res, err := db.ResourcesCollection.UpdateOne(ctx,
		bson.M{"id": resourceID, "status": models.ResourceAvailable},
		bson.M{"$set": bson.M{"status": models.ResourceDeployed, "incidentId": incidentID}},
	)
	if err != nil {
		return err
	}
	if res.ModifiedCount == 0 {
		return resourceRejection(ctx, resourceID)
	}

	ires, err := db.IncidentsCollection.UpdateOne(ctx,
		bson.M{"id": incidentID, "status": models.IncidentPending},
		bson.M{"$set": bson.M{"status": models.IncidentAssigned, "resourceId": resourceID}},
	)
	if err == nil && ires.ModifiedCount == 1 {
		mq.Emit(ctx, "resource", resourceID, models.ResourceAvailable, models.ResourceDeployed, "")
		mq.Emit(ctx, "incident", incidentID, models.IncidentPending, models.IncidentAssigned, "")
		return nil
	}

	// Incident was not pending (or the update failed): undo the deploy.
	_, relErr := db.ResourcesCollection.UpdateOne(ctx,
		bson.M{"id": resourceID, "status": models.ResourceDeployed, "incidentId": incidentID},
		bson.M{"$set": bson.M{"status": models.ResourceAvailable}, "$unset": bson.M{"incidentId": ""}},
	)
	if relErr != nil {
		log.Printf("FATAL: assign compensation failed, resource %s stuck deployed against incident %s: %v",
			resourceID, incidentID, relErr)
	}
	if err != nil {
		return err
	}
	return incidentRejection(ctx, incidentID)
}

// Resolve closes an assigned incident and returns its resource to available.
// The resource CAS is guarded on deployed status, so a unit taken offline in
// the interim stays offline.
func Resolve(ctx context.Context, incidentID string) error {
	now := time.Now().Unix()
	var inc models.Incident
	err := db.IncidentsCollection.FindOneAndUpdate(ctx,
		bson.M{"id": incidentID, "status": models.IncidentAssigned},
		bson.M{"$set": bson.M{"status": models.IncidentResolved, "resolvedAt": now}},
	).Decode(&inc) // pre-update document carries the assigned resource id
	if err == mongo.ErrNoDocuments {
		return incidentRejection(ctx, incidentID)
	}
	if err != nil {
		return err
	}

	if inc.ResourceID != "" {
		_, err := db.ResourcesCollection.UpdateOne(ctx,
			bson.M{"id": inc.ResourceID, "status": models.ResourceDeployed, "incidentId": incidentID},
			bson.M{"$set": bson.M{"status": models.ResourceAvailable}, "$unset": bson.M{"incidentId": ""}},
		)
		if err != nil {
			log.Printf("FATAL: incident %s resolved but resource %s not returned to available: %v",
				incidentID, inc.ResourceID, err)
			return err
		}
		mq.Emit(ctx, "resource", inc.ResourceID, models.ResourceDeployed, models.ResourceAvailable, "")
	}

	mq.Emit(ctx, "incident", incidentID, models.IncidentAssigned, models.IncidentResolved, "")
	return nil
}

func incidentRejection(ctx context.Context, incidentID string) error {
	var inc models.Incident
	err := db.IncidentsCollection.FindOne(ctx, bson.M{"id": incidentID}).Decode(&inc)
	if err == mongo.ErrNoDocuments {
		return models.Rejected(models.ReasonNotFound, "no such incident")
	}
	if err != nil {
		return err
	}
	switch inc.Status {
	case models.IncidentAssigned:
		return models.Rejected(models.ReasonAlreadyAssigned, "incident already has an assigned resource")
	case models.IncidentResolved:
		return models.Rejected(models.ReasonAlreadyResolved, "incident is already resolved")
	default:
		return models.Rejected(models.ReasonInvalidState, "incident is "+inc.Status)
	}
}

func resourceRejection(ctx context.Context, resourceID string) error {
	var res models.Resource
	err := db.ResourcesCollection.FindOne(ctx, bson.M{"id": resourceID}).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return models.Rejected(models.ReasonNotFound, "no such resource")
	}
	if err != nil {
		return err
	}
	return models.Rejected(models.ReasonResourceUnavailable, "resource is "+res.Status)
}
