package sqlinline

const QInsertJob = `--sql 7c1f4b2a-9d3e-4f6a-8b21-5e0d9c7a4f13
insert into jobs (
    local_id, remote_id, status,
    images_requested, images_completed, images_failed,
    height, width,
    init_wait_time, wait_time, queue_position,
    errors, raw_status,
    created_at, updated_at
)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14);
`

// QPatchJob merges a partial update; null arguments leave the column untouched.
// Appended errors are concatenated onto the stored list.
const QPatchJob = `--sql 3e8a51d7-2b64-4c19-9f7e-a06d4b83c2e5
update jobs set
    remote_id        = coalesce($2, remote_id),
    status           = coalesce($3, status),
    images_completed = coalesce($4, images_completed),
    images_failed    = coalesce($5, images_failed),
    init_wait_time   = coalesce($6, init_wait_time),
    wait_time        = coalesce($7, wait_time),
    queue_position   = coalesce($8, queue_position),
    errors           = errors || coalesce($9::jsonb, '[]'::jsonb),
    raw_status       = coalesce($10::jsonb, raw_status),
    acknowledged_at  = coalesce($11, acknowledged_at),
    completed_at     = coalesce($12, completed_at),
    updated_at       = $13
where local_id = $1;
`

const QSelectJobByID = `--sql 9b2d6e8c-1a4e-4d7b-b3c5-8f61e92a0d47
select local_id, remote_id, status,
       images_requested, images_completed, images_failed,
       height, width,
       init_wait_time, wait_time, queue_position,
       errors, raw_status,
       created_at, updated_at, acknowledged_at, completed_at
from jobs
where local_id = $1;
`

const QSelectJobsByStatus = `--sql 5d7e3a91-c842-4b06-9e1d-2f8a6c04b7d3
select local_id, remote_id, status,
       images_requested, images_completed, images_failed,
       height, width,
       init_wait_time, wait_time, queue_position,
       errors, raw_status,
       created_at, updated_at, acknowledged_at, completed_at
from jobs
where status = any($1::text[])
order by created_at asc;
`

const QDeleteJob = `--sql 0f4c8b26-7e19-4a5d-8c3b-d915e6a20f78
delete from jobs
where local_id = $1;
`
