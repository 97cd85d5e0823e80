package sqlinline

const QInsertImage = `--sql 6a93d0f7-4b28-4e61-9c5a-e17f82d4b036
insert into images (
    id, job_local_id, remote_image_id, kind, data,
    seed, worker_id, worker_name, model, kudos, censored,
    created_at
)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
`

const QInsertImageFavorite = `--sql e2b71c48-9f05-4d3a-8e62-1c4a7d90b5f2
insert into image_favorites (image_id, favorited, created_at)
values ($1, false, $2);
`

const QImageExistsByRemoteID = `--sql 48d2a6e9-0c71-4f8b-a35d-7b92e1c60d84
select exists (
    select 1 from images where remote_image_id = $1::text
);
`

const QSelectImagesByJob = `--sql b5f09c3d-6e27-4a18-92cb-d840a7e613f9
select id, job_local_id, remote_image_id, kind,
       seed, worker_id, worker_name, model, kudos, censored, created_at
from images
where job_local_id = $1
order by created_at asc;
`

const QSelectImageByID = `--sql 1d86e4b0-3a59-4c27-bf18-6950c2d8a7e4
select id, job_local_id, remote_image_id, kind, data,
       seed, worker_id, worker_name, model, kudos, censored, created_at
from images
where id = $1;
`
