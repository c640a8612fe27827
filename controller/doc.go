// Package controller exposes a records.Repository over HTTP with gin.
//
// Each request moves through the same steps: authorize, check the list
// cache (list mode reads only), validate (store and update only), execute
// against the repository, shape the result with a response.Transformer.
//
//	repo := records.New[*Product](base, "product", NewProduct)
//	ctrl := controller.New(repo, nil,
//		controller.WithGate(gate),
//		controller.WithPolicy(policy),
//		controller.WithMessages(cfg.Validation.Messages),
//	)
//	ctrl.Register(router.Group("/products"))
//
// Routes mounted by Register:
//
//	GET    /           index (list=1 for the cached dropdown form)
//	GET    /count      number of records
//	GET    /statuses   model statuses as name/value pairs
//	GET    /:id        show
//	POST   /           store, 201 on success
//	PUT    /:id        update
//	PATCH  /:id        update
//	DELETE /:id        destroy
//
// Errors map to replies as follows: policy rejections 403, foreign key
// violations 409 with the vendor code, undecodable input 400, anything
// else is logged and answered with 500.
package controller
